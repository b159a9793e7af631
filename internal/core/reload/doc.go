// Package reload keeps the handler list in step with the route module files
// on disk.
//
// The Loader executes route modules against a routing.Table and records the
// index range each module contributed. The Index keeps those ranges in step
// with the handler list when slices are removed or reinserted, and the
// Associator maps files read while executing a module back to the module
// that read them. The Controller consumes file watch events and drives the
// per-file reload state machine.
//
// All list mutations happen inside routing.Table.Update, so the table's
// writer lock serializes them and readers only ever see a fully applied
// change.
package reload
