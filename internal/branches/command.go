package branches

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/dependencies"
	"github.com/temirov/upkeep/internal/ui"
	flagutils "github.com/temirov/upkeep/internal/utils/flags"
)

const (
	commandUseConstant              = "prune"
	commandShortDescriptionConstant = "Delete local branches whose upstream no longer exists"
	commandLongDescriptionConstant  = "prune walks every local branch except main, reports its tracking state, and offers to delete branches whose remote tracking branch has disappeared."
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the prune command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Console               *ui.Console
	Prompter              ConfirmationPrompter
	Input                 io.Reader
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the prune command.
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
	console := dependencies.ResolveConsole(builder.Console, command.OutOrStdout())
	reconciler, reconcilerError := NewReconcilerForCommand(command, ReconcilerWiring{
		Logger:   builder.resolveLogger(),
		Console:  console,
		Prompter: builder.Prompter,
		Input:    builder.Input,
	})
	if reconcilerError != nil {
		return reconcilerError
	}

	options := builder.resolveConfiguration().Options(flagutils.ReadExecutionFlags(command))
	summary, reconcileError := reconciler.Reconcile(command.Context(), options)
	if reconcileError != nil {
		return reconcileError
	}
	console.Info(summary.Describe())
	return nil
}

// ReconcilerWiring carries the collaborators used to assemble a Reconciler for a command.
type ReconcilerWiring struct {
	Logger   *zap.Logger
	Console  *ui.Console
	Prompter ConfirmationPrompter
	Input    io.Reader
}

// NewReconcilerForCommand wires a Reconciler around the repository attached to the command context.
func NewReconcilerForCommand(command *cobra.Command, wiring ReconcilerWiring) (*Reconciler, error) {
	repository, repositoryError := dependencies.ResolveRepository(command.Context())
	if repositoryError != nil {
		return nil, repositoryError
	}

	classifier, classifierError := NewClassifier(repository)
	if classifierError != nil {
		return nil, classifierError
	}

	prompter := wiring.Prompter
	if prompter == nil {
		input := wiring.Input
		if input == nil {
			input = command.InOrStdin()
		}
		prompter = ui.NewIOConfirmationPrompter(input, wiring.Console.Writer())
	}

	return NewReconciler(ReconcilerDependencies{
		BranchReader: classifier,
		Deleter:      repository,
		Prompter:     prompter,
		Reporter:     wiring.Console,
		Logger:       wiring.Logger,
	})
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
