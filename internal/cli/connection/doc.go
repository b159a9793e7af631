// Package connection is the CLI side of the hotroute introspection API.
//
// HTTPClient talks to a running server's /_hotroute/ endpoints and
// unwraps the standard response envelope.
package connection
