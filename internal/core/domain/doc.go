// Package domain defines the core domain models for hotroute.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Range: an inclusive index interval within the handler list
//   - RouteModule: a route source file and the range it occupies
//   - State: the server lifecycle state
//   - Errors: domain-specific error definitions
package domain
