// Package config handles configuration loading, parsing, and validation
// from environment variables (TASKS_ prefix) and an optional config.yaml.
// It provides type-safe access to the settings needed by the server, the
// job workers, the overdue scanner and the operator CLI.
package config
