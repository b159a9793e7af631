// Package httpserver runs the hotroute HTTP(S) listener.
//
// A Server owns one instance of every reload component: the routing table,
// the route module cache, the watch coordinator, the loader and the
// reload controller. Route modules are registered with CreateRoutes and
// served from the table; with refresh enabled, edits to their files are
// applied without restarting the listener.
//
// Requests pass through Recover, RequestID, Audit and PoweredBy. Paths under
// /_hotroute/ and the metrics path are answered by the server itself;
// everything else goes through the optional rate limiter and CORS policy to
// the routing table.
//
// The lifecycle is Stopped, Starting, Running, Stopping. OnStart and OnStop
// callbacks observe the transitions; a failed reload is reported on Fatal.
package httpserver
