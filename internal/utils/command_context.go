package utils

import (
	"context"

	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	repositoryContextKeyConstant            = commandContextKey("repository")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithRepository attaches the repository discovered at startup.
func (accessor CommandContextAccessor) WithRepository(parentContext context.Context, repository *gitrepo.Repository) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, repositoryContextKeyConstant, repository)
}

// Repository extracts the repository discovered at startup.
func (accessor CommandContextAccessor) Repository(executionContext context.Context) (*gitrepo.Repository, bool) {
	if executionContext == nil {
		return nil, false
	}
	repository, repositoryAvailable := executionContext.Value(repositoryContextKeyConstant).(*gitrepo.Repository)
	if !repositoryAvailable || repository == nil {
		return nil, false
	}
	return repository, true
}
