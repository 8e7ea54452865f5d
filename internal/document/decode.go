package document

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"coursegen/internal/services"
)

// ParseError reports input that cannot be decoded as text.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("document is not valid text at byte %d: %s", e.Offset, e.Reason)
	}
	return "document is not valid text: " + e.Reason
}

func (e *ParseError) Unwrap() error { return services.ErrValidation }

// Summary is the user-facing description of the failure.
func (e *ParseError) Summary() string {
	return "document could not be read as text (" + e.Reason + ")"
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode turns raw bytes into normalized text with "\n" line endings.
func decode(raw []byte) (string, error) {
	if hasUTF16BOM(raw) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return "", &ParseError{Offset: -1, Reason: "undecodable UTF-16: " + err.Error()}
		}
		raw = out
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		return "", &ParseError{Offset: firstInvalid(raw), Reason: "invalid UTF-8"}
	}
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		return "", &ParseError{Offset: idx, Reason: "binary content"}
	}

	text := string(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

func hasUTF16BOM(raw []byte) bool {
	return len(raw) >= 2 && ((raw[0] == 0xFE && raw[1] == 0xFF) || (raw[0] == 0xFF && raw[1] == 0xFE))
}

func firstInvalid(raw []byte) int {
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
