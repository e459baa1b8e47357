package envelope

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x01, 0x00},
		{0x10},
		{0x01, 0x10},
		[]byte("\x01\x01120.00\x00-3.257\x000.000\x00"),
		bytes.Repeat([]byte{0xAB, 0x00, 0x7F}, 200),
	}
	markers := []string{"Serato Autotags", "Serato Markers2", "Serato RelVolAd"}

	for _, marker := range markers {
		for _, p := range payloads {
			got, err := Unwrap(Wrap(p, marker, 0), marker)
			require.NoError(t, err)
			assert.Equal(t, p, got, "marker %q payload len %d", marker, len(p))
		}
	}
}

func TestWrapPadsToMinimumLength(t *testing.T) {
	payload := []byte{1, 2, 3}
	got, err := Unwrap(Wrap(payload, "Serato Markers2", 515), "Serato Markers2")
	require.NoError(t, err)
	require.Len(t, got, 515)
	assert.Equal(t, payload, got[:3])
	assert.Equal(t, make([]byte, 512), got[3:])
}

func TestWrapFormatting(t *testing.T) {
	out := Wrap(bytes.Repeat([]byte{0xFF}, 300), "Serato Overview", 0)

	assert.NotContains(t, string(out), "=")
	lines := bytes.Split(out, []byte{'\n'})
	require.Greater(t, len(lines), 1)
	for _, line := range lines[:len(lines)-1] {
		assert.Len(t, line, LineLength)
	}
}

func TestUnwrapMissingMarker(t *testing.T) {
	data := Wrap([]byte{1, 2, 3}, "Serato Autotags", 0)
	_, err := Unwrap(data, "Serato BeatGrid")
	assert.ErrorIs(t, err, ErrMarkerNotFound)
}

func TestUnwrapAcceptsPaddedInput(t *testing.T) {
	raw := append(Header("Serato Analysis"), 0x00, 0x01, 0x00)
	padded := []byte(base64.StdEncoding.EncodeToString(raw))

	got, err := Unwrap(padded, "Serato Analysis")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00}, got)
}

func TestUnwrapInvalidBase64(t *testing.T) {
	_, err := Unwrap([]byte("!!!!"), "Serato Analysis")
	assert.ErrorIs(t, err, ErrBase64)
}

func TestTrimPadding(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"AAAA", "AAAA"},
		{"QUI=", "QUI"},
		{"QUA=", "QUA"},
		{"QQ==", "QQ"},
		{"QA==", "Q"},
		{"AA==", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, string(TrimPadding([]byte(tt.in))))
		})
	}
}

func TestDecodeBase64RestoresTrimmedGroups(t *testing.T) {
	for n := 0; n < 8; n++ {
		data := bytes.Repeat([]byte{0x40}, n)
		data = append(data, 0x00)
		got, err := DecodeBase64(EncodeBase64(data))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestInsertNewlines(t *testing.T) {
	assert.Equal(t, "abc", string(InsertNewlines([]byte("abc"), 3)))
	assert.Equal(t, "abc\nd", string(InsertNewlines([]byte("abcd"), 3)))
	assert.Equal(t, "abc\ndef", string(InsertNewlines([]byte("abcdef"), 3)))
}
