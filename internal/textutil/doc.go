// Package textutil provides text helpers shared by narration and subtitles.
//
// The primary use cases are:
//   - Splitting lesson text into sentences and synthesis-sized chunks
//   - Counting words to distribute narration time across subtitle cues
//   - Reducing job identifiers to tokens safe for use as directory names
package textutil
