// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions upkeep uses to run
// git helper processes such as the credential helper in a testable manner.
package execshell
