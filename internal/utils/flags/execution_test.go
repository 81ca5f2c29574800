package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestExecutionFlagsAreInheritedBySubcommands(t *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		expectedValues ExecutionFlagValues
	}{
		{
			name:           "Defaults",
			arguments:      []string{"prune"},
			expectedValues: ExecutionFlagValues{},
		},
		{
			name:           "DryRun",
			arguments:      []string{"prune", "--dry-run"},
			expectedValues: ExecutionFlagValues{DryRun: true, DryRunSet: true},
		},
		{
			name:           "AssumeYesShorthand",
			arguments:      []string{"prune", "-y"},
			expectedValues: ExecutionFlagValues{AssumeYes: true, AssumeYesSet: true},
		},
		{
			name:           "ExplicitFalse",
			arguments:      []string{"prune", "--yes=false"},
			expectedValues: ExecutionFlagValues{AssumeYes: false, AssumeYesSet: true},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var observedValues ExecutionFlagValues
			rootCommand := &cobra.Command{Use: "upkeep"}
			BindExecutionFlags(rootCommand, ExecutionDefaults{})
			rootCommand.AddCommand(&cobra.Command{
				Use: "prune",
				RunE: func(command *cobra.Command, arguments []string) error {
					observedValues = ReadExecutionFlags(command)
					return nil
				},
			})

			rootCommand.SetArgs(testCase.arguments)
			require.NoError(t, rootCommand.Execute())
			require.Equal(t, testCase.expectedValues, observedValues)
		})
	}
}

func TestReadExecutionFlagsWithoutBinding(t *testing.T) {
	require.Equal(t, ExecutionFlagValues{}, ReadExecutionFlags(&cobra.Command{Use: "bare"}))
	require.Equal(t, ExecutionFlagValues{}, ReadExecutionFlags(nil))
}
