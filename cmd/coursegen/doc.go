// Package main hosts the coursegen CLI entrypoint and command graph.
//
// The Cobra command tree turns a markdown document into a published course
// (generate), previews how a document splits into lessons (parse), inspects
// the job journal (jobs), checks the environment (check), scaffolds and
// validates configuration (config) and prunes intermediate work files
// (clean).
//
// Commands stay thin: configuration resolution and logger construction live
// in commandContext, and generation wiring lives in newGenerator. Add new
// behaviour to the internal packages first and surface it here.
package main
