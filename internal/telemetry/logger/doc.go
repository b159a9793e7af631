// Package logger provides structured logging for hotroute.
//
// New builds a log/slog logger writing JSON or text at a level that can be
// changed later. Attributes whose key names a secret (passphrase, key,
// token) and values holding an inline PEM private key are masked before
// they are written. The request ID middleware stores its ID in the request
// context, where handlers read it back with RequestIDFromContext.
package logger
