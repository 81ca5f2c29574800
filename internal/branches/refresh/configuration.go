package refresh

import "time"

// CommandConfiguration captures configuration values for the refresh command.
type CommandConfiguration struct {
	NetworkTimeout time.Duration `mapstructure:"network_timeout" yaml:"network_timeout"`
}

// DefaultCommandConfiguration returns a configuration without a network bound.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{NetworkTimeout: 0}
}

// Sanitize clamps negative timeouts to zero.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.NetworkTimeout < 0 {
		sanitized.NetworkTimeout = 0
	}
	return sanitized
}

// Options converts the configuration into service options.
func (configuration CommandConfiguration) Options() Options {
	return Options{NetworkTimeout: configuration.Sanitize().NetworkTimeout}
}
