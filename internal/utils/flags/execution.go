// Package flags binds the execution flags shared by upkeep commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Report branches that would be deleted without deleting them"
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Delete orphaned branches without prompting"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun    bool
	AssumeYes bool
}

// ExecutionFlagValues holds the flag values after parsing, along with whether the user set them.
type ExecutionFlagValues struct {
	DryRun       bool
	DryRunSet    bool
	AssumeYes    bool
	AssumeYesSet bool
}

// BindExecutionFlags attaches --dry-run and --yes as persistent flags so every subcommand inherits them.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()
	persistentFlagSet.Bool(DryRunFlagName, defaults.DryRun, DryRunFlagUsage)
	persistentFlagSet.BoolP(AssumeYesFlagName, AssumeYesFlagShorthand, defaults.AssumeYes, AssumeYesFlagUsage)
}

// ReadExecutionFlags reads the execution flags visible to command, including inherited ones.
func ReadExecutionFlags(command *cobra.Command) ExecutionFlagValues {
	if command == nil {
		return ExecutionFlagValues{}
	}

	flagSet := command.Flags()
	dryRun, dryRunSet := readBoolFlag(flagSet, DryRunFlagName)
	assumeYes, assumeYesSet := readBoolFlag(flagSet, AssumeYesFlagName)
	return ExecutionFlagValues{
		DryRun:       dryRun,
		DryRunSet:    dryRunSet,
		AssumeYes:    assumeYes,
		AssumeYesSet: assumeYesSet,
	}
}

func readBoolFlag(flagSet *pflag.FlagSet, flagName string) (bool, bool) {
	if flagSet == nil || flagSet.Lookup(flagName) == nil {
		return false, false
	}
	value, valueError := flagSet.GetBool(flagName)
	if valueError != nil {
		return false, false
	}
	return value, flagSet.Changed(flagName)
}
