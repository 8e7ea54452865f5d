// Package ffprobe measures rendered narration and lesson media.
//
// Prober runs ffprobe with a narrow -show_entries query and reports the
// playable length of a file; Parse decodes captured output for tests.
package ffprobe
