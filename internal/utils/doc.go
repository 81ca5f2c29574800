// Package utils exposes the ambient helpers shared by every upkeep command.
//
// ConfigurationLoader layers the embedded defaults, an optional config file and
// UPKEEP_* environment variables through Viper. LoggerFactory builds zap
// loggers for the configured level and format. CommandContextAccessor carries
// the discovered repository and the configuration file path through Cobra
// command contexts.
package utils
