// Package preflight provides readiness checks for the external tools, services
// and filesystem paths coursegen depends on.
//
// These checks run in two contexts:
//   - The generate command calls RunAll before submitting a document.
//     If any check fails, generation is refused instead of failing lessons
//     one by one.
//   - The CLI "coursegen check" command prints every result.
//
// Checks for optional features are skipped when the feature is not configured.
package preflight
