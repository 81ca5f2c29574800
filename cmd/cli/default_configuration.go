package cli

import _ "embed"

// defaultConfigurationContent seeds every run before the user configuration is merged.
//
//go:embed default_config.yaml
var defaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in configuration and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), defaultConfigurationContent...), configurationTypeConstant
}
