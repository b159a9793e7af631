// Package routing provides the ordered request-routing table that route
// modules register their handlers into.
//
// The table is a first-match list of method+pattern handlers. Its layout is
// mutated only through HandlerList inside Table.Update, which runs on a
// staged copy under a single writer lock and publishes the result
// atomically. Requests therefore always observe either the complete old
// list or the complete new list.
//
// Patterns follow the net/http ServeMux syntax for wildcards:
//
//	/items/{id}          single segment, available via r.PathValue("id")
//	/files/{path...}     remainder of the path
//	/static/             any path below /static/
//	/{$}                 the root path only
package routing
