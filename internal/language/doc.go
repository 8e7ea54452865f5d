// Package language provides language code normalization for course metadata,
// processing options and subtitle tracks.
package language
