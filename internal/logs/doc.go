// Package logs reads the rotated JSON log file for `coursegen logs`.
//
// Tail returns the last lines of the file or the lines written after a known
// offset, optionally waiting for new output. ParseRecord decodes one JSON
// line; Filter narrows records to a job, component or minimum level, and
// Format renders them the way the console handler does.
package logs
