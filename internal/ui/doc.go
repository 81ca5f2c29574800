// Package ui renders the user-facing side of upkeep: colored status lines,
// a spinner around network operations, yes/no confirmation prompts, and
// console rendering of subprocess lifecycle events.
//
// Diagnostic logging stays on zap; everything here is meant for the person
// running the command.
package ui
