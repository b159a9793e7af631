// Package output renders command results for the hotroute CLI.
//
// Three formats are supported: an aligned text table (the default), JSON
// and YAML. Values that know how to lay themselves out as rows implement
// Tabler; other values are laid out by reflection over their exported
// fields.
package output
