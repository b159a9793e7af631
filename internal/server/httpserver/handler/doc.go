// Package handler serves the built-in introspection endpoints of hotroute.
//
// The endpoints live under /_hotroute/, outside the reloadable handler list:
//
//   - health.go: liveness and lifecycle state
//   - routes.go: loaded route modules, their ranges and dependencies, and
//     the watched directories
//
// Every response uses the Response envelope from types.go.
package handler
