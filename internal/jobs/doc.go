// Package jobs tracks course generation jobs from submission to a terminal
// outcome.
//
// Tracker is the authoritative in-memory registry consulted by pollers. Its
// lifecycle is queued -> running -> completed | failed with monotonically
// non-decreasing progress; every rejected update leaves the stored job
// untouched and returns *InvalidTransitionError. Store is an optional SQLite
// journal that receives accepted snapshots through the Recorder hook so past
// runs can be inspected after the process exits.
package jobs
