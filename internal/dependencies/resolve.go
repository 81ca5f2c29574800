// Package dependencies builds the default collaborators shared by upkeep commands,
// returning caller-supplied overrides untouched so tests can inject fakes.
package dependencies

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/credentials"
	"github.com/temirov/upkeep/internal/execshell"
	"github.com/temirov/upkeep/internal/gitrepo"
	"github.com/temirov/upkeep/internal/ui"
	"github.com/temirov/upkeep/internal/utils"
)

const repositoryUnavailableMessageConstant = "repository was not discovered before the command ran"

// ErrRepositoryUnavailable indicates a command ran without the startup repository discovery.
var ErrRepositoryUnavailable = errors.New(repositoryUnavailableMessageConstant)

// ResolveRepository returns the repository attached to the command context at startup.
func ResolveRepository(executionContext context.Context) (*gitrepo.Repository, error) {
	repository, available := utils.NewCommandContextAccessor().Repository(executionContext)
	if !available {
		return nil, ErrRepositoryUnavailable
	}
	return repository, nil
}

// ResolveConsole returns the provided console or one writing to output.
func ResolveConsole(existing *ui.Console, output io.Writer) *ui.Console {
	if existing != nil {
		return existing
	}
	return ui.NewConsole(output)
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
// When humanReadableLogging is set, subprocess lifecycle events are also rendered on console.
func ResolveGitExecutor(existing credentials.GitExecutor, logger *zap.Logger, humanReadableLogging bool, console *ui.Console) (credentials.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	executorOptions := []execshell.ExecutorOption{}
	if humanReadableLogging && console != nil {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(console)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveCredentialResolver builds a credential resolver running helpers from workingDirectory.
func ResolveCredentialResolver(executor credentials.GitExecutor, logger *zap.Logger, workingDirectory string) (*credentials.Resolver, error) {
	return credentials.NewResolver(executor, logger, workingDirectory)
}
