package speech

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"os"

	"coursegen/internal/services"
)

// Mock writes a tiny deterministic WAV file without any subprocess. Identical
// requests produce byte-identical output.
type Mock struct{}

// Synthesize implements Synthesizer.
func (Mock) Synthesize(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sum := sha256.Sum256([]byte(req.Voice + "\x00" + req.Language + "\x00" + req.Text))
	if err := os.WriteFile(req.Output, mockWAV(sum[:]), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "speech", "mock", "", err)
	}
	return nil
}

// mockWAV wraps pcm in a 16-bit mono 8 kHz RIFF header.
func mockWAV(pcm []byte) []byte {
	const sampleRate = 8000
	buf := make([]byte, 44, 44+len(pcm))
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+len(pcm)))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(pcm)))
	return append(buf, pcm...)
}
