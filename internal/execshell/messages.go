package execshell

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

type lifecyclePhase int

const (
	lifecyclePhaseStarted lifecyclePhase = iota
	lifecyclePhaseSucceeded
	lifecyclePhaseExited
	lifecyclePhaseBroken
)

const (
	credentialSubcommandConstant    = "credential"
	credentialHostAttributeConstant = "host="
	unknownCredentialHostConstant   = "unknown host"
	missingFailureCauseConstant     = "unknown error"
	argumentSeparatorConstant       = " "
	directorySuffixTemplateConstant = " (in %s)"
	stderrSuffixTemplateConstant    = ": %s"
)

// phaseTemplates holds one template per lifecycle phase. Exited templates take
// the subject, the exit code and a stderr suffix; broken templates take the
// subject and the failure text; the rest take only the subject.
type phaseTemplates map[lifecyclePhase]string

var commandPhaseTemplates = phaseTemplates{
	lifecyclePhaseStarted:   "Running %s",
	lifecyclePhaseSucceeded: "Completed %s",
	lifecyclePhaseExited:    "%s failed with exit code %d%s",
	lifecyclePhaseBroken:    "%s failed: %s",
}

var credentialPhaseTemplates = phaseTemplates{
	lifecyclePhaseStarted:   "Requesting credentials for %s",
	lifecyclePhaseSucceeded: "Credential helper answered for %s",
	lifecyclePhaseExited:    "Credential helper failed for %s (exit code %d%s)",
	lifecyclePhaseBroken:    "Unable to run credential helper for %s: %s",
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
// Credential helper invocations are described by host and never echo their input.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.render(command, lifecyclePhaseStarted, ExecutionResult{}, nil)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.render(command, lifecyclePhaseSucceeded, ExecutionResult{}, nil)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.render(command, lifecyclePhaseExited, result, nil)
}

// BuildExecutionFailureMessage formats the message describing a process that could not be run.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.render(command, lifecyclePhaseBroken, ExecutionResult{}, failure)
}

func (formatter CommandMessageFormatter) render(command ShellCommand, phase lifecyclePhase, result ExecutionResult, failure error) string {
	templates := commandPhaseTemplates
	subject := describeCommand(command)
	if isCredentialInvocation(command) {
		templates = credentialPhaseTemplates
		subject = credentialHost(command.Details.StandardInput)
	}

	switch phase {
	case lifecyclePhaseExited:
		return fmt.Sprintf(templates[phase], subject, result.ExitCode, optionalSuffix(stderrSuffixTemplateConstant, result.StandardError))
	case lifecyclePhaseBroken:
		cause := missingFailureCauseConstant
		if failure != nil {
			cause = failure.Error()
		}
		return fmt.Sprintf(templates[phase], subject, cause)
	default:
		return fmt.Sprintf(templates[phase], subject)
	}
}

func isCredentialInvocation(command ShellCommand) bool {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return false
	}
	return strings.TrimSpace(command.Details.Arguments[0]) == credentialSubcommandConstant
}

func describeCommand(command ShellCommand) string {
	words := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(words, argumentSeparatorConstant) + optionalSuffix(directorySuffixTemplateConstant, command.Details.WorkingDirectory)
}

func optionalSuffix(template string, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf(template, trimmed)
}

// credentialHost reads the host attribute from a credential request block.
func credentialHost(standardInput []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(standardInput))
	for scanner.Scan() {
		host, found := strings.CutPrefix(scanner.Text(), credentialHostAttributeConstant)
		if found && host != "" {
			return host
		}
	}
	return unknownCredentialHostConstant
}
