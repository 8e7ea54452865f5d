// Package course holds the data model shared by the generation pipeline:
// documents, sections, processing options, lessons and courses, plus the
// deterministic identifier functions used to name lesson assets.
package course
