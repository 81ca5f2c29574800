package upkeep

import (
	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/branches/refresh"
	flagutils "github.com/temirov/upkeep/internal/utils/flags"
)

// CommandConfiguration holds the tools.upkeep section shared by every command.
type CommandConfiguration struct {
	Refresh  refresh.CommandConfiguration  `mapstructure:",squash" yaml:",inline"`
	Branches branches.CommandConfiguration `mapstructure:",squash" yaml:",inline"`
}

// DefaultCommandConfiguration returns the built-in tools.upkeep values.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Refresh:  refresh.DefaultCommandConfiguration(),
		Branches: branches.DefaultCommandConfiguration(),
	}
}

// DefaultConfigurationValues returns viper defaults rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + ".network_timeout": defaults.Refresh.NetworkTimeout,
		prefix + ".assume_yes":      defaults.Branches.AssumeYes,
		prefix + ".dry_run":         defaults.Branches.DryRun,
	}
}

// Options resolves run options, letting explicitly set execution flags win over configuration.
func (configuration CommandConfiguration) Options(flagValues flagutils.ExecutionFlagValues) Options {
	return Options{
		Refresh:   configuration.Refresh.Options(),
		Reconcile: configuration.Branches.Options(flagValues),
	}
}
