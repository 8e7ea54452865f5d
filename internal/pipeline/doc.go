// Package pipeline runs course generation jobs.
//
// Generator owns the job state machine. Submit creates a queued job and runs
// it in the background; Run is the synchronous core. A run parses the
// document, fans its sections out to the lesson builder on a bounded
// errgroup and publishes progress to the tracker after each lesson. The
// failure policy decides what a lesson failure does: fail_fast ends the job
// on the first one, best_effort skips failed lessons until the configured
// tolerance is exceeded or no lesson succeeded.
//
// Cancellation gives in-flight lessons a grace period, then abandons them;
// late results are discarded. Once a run has been sealed by its terminal
// transition, recording into it panics.
//
// Completed courses are published under the output directory together with a
// course manifest (asset checksums, totals) and a player config.
package pipeline
