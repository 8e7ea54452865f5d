// Package encoder defines the contract for invoking the external media encoder.
//
// Every invocation names exactly one output file. A Runner reports success only
// when the encoder exits zero and the output exists with non-zero size, so
// callers never publish half-written or empty media.
package encoder
