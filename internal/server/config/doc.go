// Package config provides server configuration for hotroute.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (address, TLS material, limits)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - load.go: Loading through internal/infra/confloader
//
// Configuration supports multiple sources: files, environment variables
// (HOTROUTE_ prefix) and command-line flags.
package config
