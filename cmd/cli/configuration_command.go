package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configurationCommandUseConstant              = "config"
	configurationCommandShortDescriptionConstant = "Print the effective configuration as YAML"
	configurationCommandLongDescriptionConstant  = "config prints the configuration upkeep would run with after merging built-in defaults, the configuration file, environment variables, and flags."
	configurationIndentationConstant             = 2
	configurationEncodeErrorTemplateConstant     = "unable to render configuration: %w"
)

// ConfigurationCommandBuilder assembles the config command.
type ConfigurationCommandBuilder struct {
	ConfigurationProvider func() ApplicationConfiguration
}

// Build constructs the config command.
func (builder *ConfigurationCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           configurationCommandUseConstant,
		Short:         configurationCommandShortDescriptionConstant,
		Long:          configurationCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		Annotations:   map[string]string{skipRepositoryDiscoveryAnnotation: annotationEnabledValueConstant},
		RunE:          builder.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return command, nil
}

func (builder *ConfigurationCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := ApplicationConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(configurationIndentationConstant)
	if encodeError := encoder.Encode(configuration); encodeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
