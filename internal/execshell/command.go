package execshell

import "context"

// CommandName identifies an executable invoked through the shell executor.
type CommandName string

// Supported executables.
const (
	CommandGit CommandName = CommandName("git")
)

// CommandDetails describes arguments and process settings for a single invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
	// ForwardStandardError mirrors the child's stderr to the parent process while still capturing it.
	ForwardStandardError bool
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner starts a process, waits for it and reports its result.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandEventObserver is told when a command starts, when it finishes with an
// exit code, and when it could not be run at all.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

type silentObserver struct{}

func (silentObserver) CommandStarted(ShellCommand) {}

func (silentObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (silentObserver) CommandExecutionFailed(ShellCommand, error) {}
