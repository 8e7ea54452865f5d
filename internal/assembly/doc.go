// Package assembly builds lesson videos from narration with the external
// encoder.
//
// Assembly runs in stages: a base video from a VisualBackend, optional
// subtitle burn-in and optional background music from a MusicSource. Every
// stage writes a fresh file through a temporary sibling and rename; no stage
// overwrites an asset another stage may be reading. Failures are reported as
// *AssemblyError naming the stage.
package assembly
