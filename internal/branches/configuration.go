package branches

import (
	flagutils "github.com/temirov/upkeep/internal/utils/flags"
)

// CommandConfiguration captures configuration values for branch reconciliation.
type CommandConfiguration struct {
	AssumeYes bool `mapstructure:"assume_yes" yaml:"assume_yes"`
	DryRun    bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// DefaultCommandConfiguration prompts before every deletion.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{AssumeYes: false, DryRun: false}
}

// Options merges configured values with explicitly set execution flags; flags win.
func (configuration CommandConfiguration) Options(flagValues flagutils.ExecutionFlagValues) ReconcileOptions {
	options := ReconcileOptions{AssumeYes: configuration.AssumeYes, DryRun: configuration.DryRun}
	if flagValues.AssumeYesSet {
		options.AssumeYes = flagValues.AssumeYes
	}
	if flagValues.DryRunSet {
		options.DryRun = flagValues.DryRun
	}
	return options
}
