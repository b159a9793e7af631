// Package tlsroots loads the TLS material of the hotroute listener.
//
// Every value may be a file path or inline PEM content:
//
//   - material.go: path-or-inline reads, key pair loading with passphrase
//   - roots.go: CA pools for client certificate verification
//
// Material is loaded once when the server is constructed; read or parse
// failures are returned to the caller and are fatal at startup.
package tlsroots
