package execshell_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/upkeep/internal/execshell"
)

const testShellCommandName = execshell.CommandName("sh")

func TestOSCommandRunnerRun(testInstance *testing.T) {
	testCases := []struct {
		name             string
		details          execshell.CommandDetails
		expectedOutput   string
		expectedError    string
		expectedExitCode int
		expectedSink     string
	}{
		{
			name:           "feeds_standard_input",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "cat"}, StandardInput: []byte("protocol=https\nhost=github.com\n\n")},
			expectedOutput: "protocol=https\nhost=github.com\n\n",
		},
		{
			name:             "reports_exit_code_without_error",
			details:          execshell.CommandDetails{Arguments: []string{"-c", "echo partial; exit 3"}},
			expectedOutput:   "partial\n",
			expectedExitCode: 3,
		},
		{
			name:          "captures_standard_error",
			details:       execshell.CommandDetails{Arguments: []string{"-c", "echo prompt >&2"}},
			expectedError: "prompt\n",
		},
		{
			name:          "forwards_standard_error",
			details:       execshell.CommandDetails{Arguments: []string{"-c", "echo prompt >&2"}, ForwardStandardError: true},
			expectedError: "prompt\n",
			expectedSink:  "prompt\n",
		},
		{
			name:           "applies_environment_overrides",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "printf %s \"$UPKEEP_TEST_VALUE\""}, EnvironmentVariables: map[string]string{"UPKEEP_TEST_VALUE": "present"}},
			expectedOutput: "present",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sink := &bytes.Buffer{}
			runner := execshell.NewOSCommandRunnerWithErrorSink(sink)

			result, runError := runner.Run(context.Background(), execshell.ShellCommand{Name: testShellCommandName, Details: testCase.details})
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedOutput, result.StandardOutput)
			require.Equal(testInstance, testCase.expectedError, result.StandardError)
			require.Equal(testInstance, testCase.expectedExitCode, result.ExitCode)
			require.Equal(testInstance, testCase.expectedSink, sink.String())
		})
	}
}

func TestOSCommandRunnerReportsMissingExecutable(testInstance *testing.T) {
	runner := execshell.NewOSCommandRunnerWithErrorSink(&bytes.Buffer{})
	_, runError := runner.Run(context.Background(), execshell.ShellCommand{Name: execshell.CommandName("upkeep-missing-binary")})
	require.Error(testInstance, runError)
}
