package upkeep

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/branches/refresh"
	"github.com/temirov/upkeep/internal/credentials"
	"github.com/temirov/upkeep/internal/dependencies"
	"github.com/temirov/upkeep/internal/ui"
	flagutils "github.com/temirov/upkeep/internal/utils/flags"
)

const (
	commandUseConstant              = "upkeep"
	commandShortDescriptionConstant = "Refresh the main branch and prune local branches whose upstream is gone"
	commandLongDescriptionConstant  = "upkeep fetches the single configured remote with pruning, fast-forwards the main branch, and then offers to delete every local branch whose remote tracking branch no longer exists."
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the command that runs the full upkeep pass.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  credentials.GitExecutor
	Console                      *ui.Console
	Prompter                     branches.ConfirmationPrompter
	Input                        io.Reader
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the upkeep command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		RunE:          builder.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	console := dependencies.ResolveConsole(builder.Console, command.OutOrStdout())

	refreshService, refreshError := refresh.NewServiceForCommand(command, refresh.ServiceWiring{
		Logger:               logger,
		GitExecutor:          builder.GitExecutor,
		Console:              console,
		HumanReadableLogging: builder.humanReadableLogging(),
	})
	if refreshError != nil {
		return refreshError
	}

	reconciler, reconcilerError := branches.NewReconcilerForCommand(command, branches.ReconcilerWiring{
		Logger:   logger,
		Console:  console,
		Prompter: builder.Prompter,
		Input:    builder.Input,
	})
	if reconcilerError != nil {
		return reconcilerError
	}

	service, serviceError := NewService(Dependencies{
		Refresher:  refreshService,
		Reconciler: reconciler,
		Reporter:   console,
		Logger:     logger,
	})
	if serviceError != nil {
		return serviceError
	}

	_, runError := service.Run(command.Context(), builder.resolveConfiguration().Options(flagutils.ReadExecutionFlags(command)))
	return runError
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
