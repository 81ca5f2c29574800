// Package cli constructs the upkeep command-line interface: the Cobra command
// hierarchy, the configuration loader, structured logging, and the startup
// repository discovery that every branch command depends on.
package cli
