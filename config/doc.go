// Package config loads the application configuration from a YAML file and
// LIBRIS_ prefixed environment variables.
package config
