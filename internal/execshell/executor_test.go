package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/upkeep/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCredentialArgumentConstant               = "credential"
	testFillArgumentConstant                     = "fill"
	testWorkingDirectoryConstant                 = "."
	testStandardErrorOutputConstant              = "failure"
	testSecretOutputConstant                     = "password=hunter2"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordingObserver struct {
	events []string
}

func (recorder *recordingObserver) CommandStarted(execshell.ShellCommand) {
	recorder.events = append(recorder.events, "started")
}

func (recorder *recordingObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
	recorder.events = append(recorder.events, "completed")
}

func (recorder *recordingObserver) CommandExecutionFailed(execshell.ShellCommand, error) {
	recorder.events = append(recorder.events, "failed")
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedLogCount int
		expectedEvents   []string
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: testSecretOutputConstant,
				ExitCode:       0,
			},
			expectedLogCount: 2,
			expectedEvents:   []string{"started", "completed"},
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      1,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
			expectedEvents:   []string{"started", "completed"},
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New("runner failure"),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
			expectedEvents:   []string{"started", "failed"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}
			eventRecorder := &recordingObserver{}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner, execshell.WithCommandEventObserver(eventRecorder))
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{
				Arguments:        []string{testCredentialArgumentConstant, testFillArgumentConstant},
				WorkingDirectory: testWorkingDirectoryConstant,
				StandardInput:    []byte("protocol=https\nhost=example.com\n\n"),
			}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
			for _, entry := range observerLogs.All() {
				require.NotContains(testInstance, entry.Message, testSecretOutputConstant)
			}
			require.Equal(testInstance, testCase.expectedEvents, eventRecorder.events)
			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)
		})
	}
}

func TestCommandFailedErrorPreservesResult(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{
		executionResult: execshell.ExecutionResult{StandardOutput: "username=someone\n", ExitCode: 128},
	}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{})

	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, executionError, &failedError)
	require.Equal(testInstance, 128, failedError.Result.ExitCode)
	require.Equal(testInstance, "username=someone\n", failedError.Result.StandardOutput)
}
