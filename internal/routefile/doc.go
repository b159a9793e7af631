// Package routefile implements route modules as YAML route tables.
//
// A route module is a file that, when executed against the handler list,
// registers one or more handlers. Modules may include other modules and
// read response bodies from files; every file read while executing a module
// is reported as one of its dependencies so a change to it can reload the
// module. A module included more than once within one execution, directly
// or through a shared include, contributes its routes once, at its first
// position.
//
// Example:
//
//	include:
//	  - shared/health.yaml
//	routes:
//	  - method: GET
//	    path: /zing
//	    body: zing
//	  - method: GET
//	    path: /items/{id}
//	    when: 'params.id != "0" && header["X-Mode"] == "fast"'
//	    json: {id: 1, name: widget}
//	  - path: /fixture
//	    file: fixtures/items.json
//	  - path: /old
//	    redirect: /new
//
// Parsed files are held in a Source, a module registry scoped to one server
// and keyed by canonical path, with explicit invalidation.
package routefile
