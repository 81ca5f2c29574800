package execshell

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s exited with code %d"
	commandExecutionErrorTemplateConstant     = "%s could not be executed: %v"
	logFieldCommandNameConstant               = "command_name"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandFailedError reports a process that finished with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failedError CommandFailedError) Error() string {
	return fmt.Sprintf(commandFailedErrorTemplateConstant, failedError.Command.Name, failedError.Result.ExitCode)
}

// CommandExecutionError reports a process that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, executionError.Command.Name, executionError.Cause)
}

// Unwrap exposes the underlying failure.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ExecutorOption customizes a ShellExecutor.
type ExecutorOption func(executor *ShellExecutor)

// WithCommandEventObserver routes lifecycle events to the provided observer.
func WithCommandEventObserver(observer CommandEventObserver) ExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// ShellExecutor runs external commands and records structured diagnostics.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observer  CommandEventObserver
	formatter CommandMessageFormatter
}

// NewShellExecutor validates dependencies and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		observer:  silentObserver{},
		formatter: CommandMessageFormatter{},
	}
	for _, option := range options {
		option(executor)
	}
	return executor, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// execute never logs process output; credential helpers print secrets on stdout.
func (executor *ShellExecutor) execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}

	executor.logger.Debug(executor.formatter.BuildStartedMessage(command), commandFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, runError), commandFields...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	resultFields := append(commandFields, zap.Int(logFieldExitCodeConstant, executionResult.ExitCode))
	if executionResult.ExitCode != 0 {
		executor.logger.Warn(executor.formatter.BuildFailureMessage(command, executionResult), resultFields...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command), resultFields...)
	return executionResult, nil
}
