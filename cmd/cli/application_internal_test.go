package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testBrokenBuilderMessageConstant = "builder misconfigured"
	testRootCaseNameConstant         = "root_builder_fails"
	testSubcommandCaseNameConstant   = "subcommand_builder_fails"
	testHealthyCaseNameConstant      = "all_builders_succeed"
)

type stubCommandBuilder struct {
	use        string
	buildError error
}

func (builder stubCommandBuilder) Build() (*cobra.Command, error) {
	if builder.buildError != nil {
		return nil, builder.buildError
	}
	return &cobra.Command{Use: builder.use}, nil
}

func TestAssembleCommandTree(testInstance *testing.T) {
	brokenBuilderError := errors.New(testBrokenBuilderMessageConstant)
	testCases := []struct {
		name                string
		rootBuilder         commandBuilder
		subcommandBuilders  []commandBuilder
		expectedError       error
		expectedSubcommands []string
	}{
		{
			name:               testRootCaseNameConstant,
			rootBuilder:        stubCommandBuilder{buildError: brokenBuilderError},
			subcommandBuilders: []commandBuilder{stubCommandBuilder{use: "refresh"}},
			expectedError:      brokenBuilderError,
		},
		{
			name:               testSubcommandCaseNameConstant,
			rootBuilder:        stubCommandBuilder{use: "upkeep"},
			subcommandBuilders: []commandBuilder{stubCommandBuilder{use: "refresh"}, stubCommandBuilder{buildError: brokenBuilderError}},
			expectedError:      brokenBuilderError,
		},
		{
			name:                testHealthyCaseNameConstant,
			rootBuilder:         stubCommandBuilder{use: "upkeep"},
			subcommandBuilders:  []commandBuilder{stubCommandBuilder{use: "refresh"}, stubCommandBuilder{use: "prune"}},
			expectedSubcommands: []string{"prune", "refresh"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			rootCommand, assembleError := assembleCommandTree(testCase.rootBuilder, testCase.subcommandBuilders...)
			if testCase.expectedError != nil {
				require.ErrorIs(subtest, assembleError, testCase.expectedError)
				require.ErrorContains(subtest, assembleError, "unable to build command")
				require.Nil(subtest, rootCommand)
				return
			}

			require.NoError(subtest, assembleError)
			subcommandNames := []string{}
			for _, subcommand := range rootCommand.Commands() {
				subcommandNames = append(subcommandNames, subcommand.Name())
			}
			require.Equal(subtest, testCase.expectedSubcommands, subcommandNames)
		})
	}
}

func TestExecuteReturnsBuildErrorWithoutRunning(testInstance *testing.T) {
	brokenBuilderError := errors.New(testBrokenBuilderMessageConstant)
	application := &Application{buildError: brokenBuilderError}

	require.ErrorIs(testInstance, application.Execute(), brokenBuilderError)
	require.Nil(testInstance, application.RootCommand())
}

func TestNewApplicationBuildsEveryCommand(testInstance *testing.T) {
	application := NewApplication()

	require.NoError(testInstance, application.buildError)
	require.NotNil(testInstance, application.RootCommand())
	require.True(testInstance, application.RootCommand().SilenceUsage)
	require.True(testInstance, application.RootCommand().SilenceErrors)
	for _, subcommandName := range []string{"refresh", "prune", "config"} {
		subcommand, _, findError := application.RootCommand().Find([]string{subcommandName})
		require.NoError(testInstance, findError)
		require.Equal(testInstance, subcommandName, subcommand.Name())
	}
}
