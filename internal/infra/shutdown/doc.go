// Package shutdown coordinates graceful termination of hotroute.
//
// A Handler waits for the first of:
//
//   - a termination signal (SIGINT, SIGTERM by default)
//   - cancellation of the caller's context
//   - an error on a fatal channel, such as a failed route reload
//
// It then runs the registered hooks in reverse order under a timeout.
// Wait returns the fatal error, if any, joined with hook errors, so a
// failed reload still exits non-zero after a clean shutdown.
package shutdown
