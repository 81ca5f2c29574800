package ui

import (
	"github.com/temirov/upkeep/internal/execshell"
)

// CommandStatusReporter is the subset of Console used to render command events.
type CommandStatusReporter interface {
	Info(message string)
	Success(message string)
	Warning(message string)
	Failure(message string)
}

// ConsoleCommandEventLogger renders subprocess lifecycle events as console status lines.
type ConsoleCommandEventLogger struct {
	reporter  CommandStatusReporter
	formatter execshell.CommandMessageFormatter
}

// NewConsoleCommandEventLogger constructs an observer rendering onto reporter.
func NewConsoleCommandEventLogger(reporter CommandStatusReporter) *ConsoleCommandEventLogger {
	return &ConsoleCommandEventLogger{reporter: reporter, formatter: execshell.CommandMessageFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil || eventLogger.reporter == nil {
		return
	}
	eventLogger.reporter.Info(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil || eventLogger.reporter == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.reporter.Success(eventLogger.formatter.BuildSuccessMessage(command))
		return
	}
	eventLogger.reporter.Warning(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil || eventLogger.reporter == nil {
		return
	}
	eventLogger.reporter.Failure(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}
