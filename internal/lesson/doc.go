// Package lesson turns one parsed section into a finished lesson.
//
// Builder calls the speech gateway for narration and the assembler for the
// video, then derives the lesson id from the job, the section order and the
// section content digest. Any failure is returned as a *Failure naming the
// section and stage so the caller can apply its failure policy.
package lesson
