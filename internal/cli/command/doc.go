// Package command defines the hotroute command line.
//
//   - serve: run the HTTP server with hot-reloadable route modules
//   - check: parse route modules offline and list their routes
//   - status: query a running server's introspection endpoints
//   - config show: print the effective, sanitized configuration
//
// Commands parse their flags, call into the server packages and render
// results through internal/cli/output.
package command
