// Package upkeep runs the complete maintenance pass: refresh the main branch
// from the single remote, then reconcile local branches whose upstream vanished.
package upkeep
