// Package staging reclaims per-job work directories and abandoned course
// publications.
//
// Lesson assets are rendered beneath work_dir/<job id> and copied into the
// output directory once the course is published, so work directories are
// scratch space. Publications are staged as hidden ".<course id>.partial-*"
// directories next to the final course directory; a crash mid-publish leaves
// one behind.
package staging
