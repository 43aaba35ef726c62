// Package config provides application configuration management.
//
// Configuration is loaded at startup from environment variables (bound
// in Loader.bindEnvironmentVariables), an optional YAML file, and the
// defaults set in Loader.setDefaults, in that priority order, using
// Viper. MustLoad
// panics on an invalid configuration so the process fails fast instead
// of serving traffic it can't support.
package config
