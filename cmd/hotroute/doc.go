// Package main provides the entry point for hotroute.
//
// hotroute is an HTTP server whose handlers come from route module files.
// With refresh enabled, editing, creating, removing or renaming a module
// (or any file it includes) swaps its handlers in place without a restart.
//
// Usage:
//
//	hotroute serve -c hotroute.yaml
//	hotroute serve --port 9000 routes.yaml
//	hotroute check routes.yaml
//	hotroute status --server localhost:8080
//	hotroute config show -c hotroute.yaml
package main
