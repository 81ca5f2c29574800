package refresh

import (

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/credentials"
	"github.com/temirov/upkeep/internal/dependencies"
	"github.com/temirov/upkeep/internal/ui"
)

const (
	commandUseConstant              = "refresh"
	commandShortDescriptionConstant = "Fetch the remote and fast-forward the main branch"
	commandLongDescriptionConstant  = "refresh resolves credentials for the single configured remote, fetches it with pruning, checks out the main branch, and fast-forwards it when its upstream moved."
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the refresh command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  credentials.GitExecutor
	Console                      *ui.Console
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the refresh command.
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
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()
	console := dependencies.ResolveConsole(builder.Console, command.OutOrStdout())

	service, serviceError := NewServiceForCommand(command, ServiceWiring{
		Logger:               logger,
		GitExecutor:          builder.GitExecutor,
		Console:              console,
		HumanReadableLogging: builder.humanReadableLogging(),
	})
	if serviceError != nil {
		return serviceError
	}

	_, refreshError := service.Refresh(command.Context(), configuration.Options())
	return refreshError
}

// ServiceWiring carries the collaborators used to assemble a Service for a command.
type ServiceWiring struct {
	Logger               *zap.Logger
	GitExecutor          credentials.GitExecutor
	Console              *ui.Console
	HumanReadableLogging bool
}

// NewServiceForCommand wires a Service around the repository attached to the command context.
func NewServiceForCommand(command *cobra.Command, wiring ServiceWiring) (*Service, error) {
	repository, repositoryError := dependencies.ResolveRepository(command.Context())
	if repositoryError != nil {
		return nil, repositoryError
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(wiring.GitExecutor, wiring.Logger, wiring.HumanReadableLogging, wiring.Console)
	if executorError != nil {
		return nil, executorError
	}

	credentialResolver, resolverError := dependencies.ResolveCredentialResolver(gitExecutor, wiring.Logger, repository.RootPath())
	if resolverError != nil {
		return nil, resolverError
	}

	classifier, classifierError := branches.NewClassifier(repository)
	if classifierError != nil {
		return nil, classifierError
	}

	return NewService(Dependencies{
		Repository:         repository,
		CredentialResolver: credentialResolver,
		BranchReader:       classifier,
		Reporter:           wiring.Console,
		Logger:             wiring.Logger,
	})
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
	return builder.ConfigurationProvider().Sanitize()
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
