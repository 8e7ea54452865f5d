// Package speech narrates lesson text through interchangeable synthesis
// backends.
//
// The Gateway is the single entry point used by lesson orchestration. It picks
// a Backend with Select, enforces rate limits and per-call timeouts, retries
// transient failures with linear backoff, splits long text into chunks and
// joins the resulting audio with the encoder. Output paths are derived from
// the job, the lesson order and the request content, so retried calls land on
// the same file and completed narration is reused.
//
// Backends:
//   - Draft: local placeholder narration rendered by ffmpeg
//   - Neural: remote TTS service reached over HTTP
//   - Mock: deterministic in-process WAV output for tests and dry runs
package speech
