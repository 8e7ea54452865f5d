// Package services holds the plumbing every generation stage shares.
//
// A Scope carried on the context records which job, lesson and stage a call
// belongs to; logging and tracing read it instead of threading identifiers
// through every signature. Errors raised by stages are wrapped with Wrap
// around one of the sentinel markers so callers can ask errors.Is, and
// Classify/Reason turn any failure into a retry decision or a one-line
// summary for job history.
package services
