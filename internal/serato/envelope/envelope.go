// Package envelope wraps binary Serato payloads so they can be stored in
// text-only tag slots (Vorbis comments and MP4 freeform atoms).
//
// An envelope is the base64 encoding of
//
//	application/octet-stream \0 \0 <marker> \0 <payload>
//
// with the '=' padding removed and a newline every 72 characters.
package envelope

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

const mimePrefix = "application/octet-stream\x00\x00"

// LineLength is the base64 line width Serato uses.
const LineLength = 72

var (
	ErrMarkerNotFound = errors.New("envelope marker not found")
	ErrBase64         = errors.New("invalid base64 data")
)

// Unwrap decodes an envelope and returns the bytes that follow the marker.
func Unwrap(data []byte, marker string) ([]byte, error) {
	raw, err := DecodeBase64(data)
	if err != nil {
		return nil, err
	}

	header := Header(marker)
	i := bytes.Index(raw, header)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMarkerNotFound, marker)
	}
	return raw[i+len(header):], nil
}

// Wrap builds the envelope for data. The payload is NUL-padded to minLen
// bytes when shorter, and Unwrap returns that padding with it.
func Wrap(data []byte, marker string, minLen int) []byte {
	header := Header(marker)
	buf := make([]byte, 0, len(header)+max(len(data), minLen))
	buf = append(buf, header...)
	buf = append(buf, data...)
	if n := minLen - len(data); n > 0 {
		buf = append(buf, make([]byte, n)...)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(buf)))
	base64.StdEncoding.Encode(encoded, buf)
	return TrimPadding(InsertNewlines(encoded, LineLength))
}

// Header returns the literal prefix that precedes the payload.
func Header(marker string) []byte {
	return []byte(mimePrefix + marker + "\x00")
}

// DecodeBase64 decodes base64 text written by Serato: newlines are ignored
// and the stripped padding is restored from the length.
func DecodeBase64(data []byte) ([]byte, error) {
	text := make([]byte, 0, len(data)+3)
	for _, c := range data {
		if c != '\n' && c != '\r' {
			text = append(text, c)
		}
	}

	switch len(text) % 4 {
	case 1:
		text = append(text, 'A', '=', '=')
	case 2:
		text = append(text, '=', '=')
	case 3:
		text = append(text, '=')
	}

	out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(out, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBase64, err)
	}
	return out[:n], nil
}

// EncodeBase64 encodes data without padding.
func EncodeBase64(data []byte) []byte {
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(encoded, data)
	return TrimPadding(encoded)
}

// TrimPadding removes the '=' padding. When the final group carries a
// single byte its second character is also dropped if it is 'A', since
// DecodeBase64 restores it.
func TrimPadding(b []byte) []byte {
	n := len(b)
	for n > 0 && b[n-1] == '=' {
		n--
	}
	if len(b)-n == 2 && n > 0 && b[n-1] == 'A' {
		n--
	}
	return b[:n]
}

// InsertNewlines adds '\n' after every period characters. Input no longer
// than period is returned unchanged.
func InsertNewlines(b []byte, period int) []byte {
	if len(b) <= period {
		return b
	}
	out := make([]byte, 0, len(b)+len(b)/period)
	for i, c := range b {
		out = append(out, c)
		if (i+1)%period == 0 && i+1 < len(b) {
			out = append(out, '\n')
		}
	}
	return out
}
