// Package fswatch watches route module files and their dependencies.
//
// Files are grouped by directory: the first file registered in a directory
// creates a Group that owns one fsnotify watcher on that directory. Raw
// notifications are filtered against the group's watched set and mapped to
// Created, Changed and Removed events, which the Coordinator fans in to a
// single channel. Watching the directory rather than the file keeps editors
// that save by rename visible.
package fswatch
