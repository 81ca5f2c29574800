package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

const environmentAssignmentSeparatorConstant = "="

// OSCommandRunner starts real processes through os/exec.
type OSCommandRunner struct {
	standardErrorSink io.Writer
}

// NewOSCommandRunner constructs a runner that mirrors forwarded stderr to the parent stderr.
func NewOSCommandRunner() *OSCommandRunner {
	return NewOSCommandRunnerWithErrorSink(os.Stderr)
}

// NewOSCommandRunnerWithErrorSink constructs a runner that mirrors forwarded stderr to sink.
func NewOSCommandRunnerWithErrorSink(sink io.Writer) *OSCommandRunner {
	return &OSCommandRunner{standardErrorSink: sink}
}

// Run starts the process, feeds standard input, and waits for it on every path.
// A non-zero exit is reported through ExecutionResult.ExitCode, not as an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(command.Details.EnvironmentVariables)

	var capturedOutput bytes.Buffer
	var capturedError bytes.Buffer
	process.Stdout = &capturedOutput
	process.Stderr = runner.errorWriter(&capturedError, command.Details.ForwardStandardError)
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	exitCode := 0
	if runError := process.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		exitCode = exitError.ExitCode()
	}

	return ExecutionResult{
		StandardOutput: capturedOutput.String(),
		StandardError:  capturedError.String(),
		ExitCode:       exitCode,
	}, nil
}

func (runner *OSCommandRunner) errorWriter(capture *bytes.Buffer, forward bool) io.Writer {
	if !forward || runner.standardErrorSink == nil {
		return capture
	}
	return io.MultiWriter(capture, runner.standardErrorSink)
}

// mergeEnvironment returns nil when there are no overrides so the child inherits the parent environment.
func mergeEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	environment := append([]string{}, os.Environ()...)
	for key, value := range overrides {
		environment = append(environment, key+environmentAssignmentSeparatorConstant+value)
	}
	return environment
}
