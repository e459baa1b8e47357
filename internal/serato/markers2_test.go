package serato

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

func TestMarkers2ColorCueLock(t *testing.T) {
	entries := []Entry{
		ColorEntry{Color: domain.White},
		NewCueEntry(0, 1000, domain.ColorRed.RGB(), ""),
		BpmLockEntry{Enabled: false},
	}

	data, err := EncodeMarkers2(entries)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01}, data[:2])
	assert.Len(t, data, 2+markers2MinLen)

	payload, err := MarshalMarkers2Payload(entries)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01}, payload[:2])

	decoded, err := DecodeMarkers2(data)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestMarkers2PayloadRoundTrip(t *testing.T) {
	entries := []Entry{
		ColorEntry{Color: domain.RGB{R: 0xff, G: 0x99, B: 0xff}},
		NewCueEntry(0, 0, domain.ColorRed.RGB(), "intro"),
		NewCueEntry(3, 65432, domain.ColorTeal.RGB(), "drop"),
		NewLoopEntry(0, 1200, 9200, domain.RGB{R: 39, G: 170, B: 225}, true, "loop 1"),
		UnknownEntry{Name: "FUTURE", Data: []byte{0x01, 0x02, 0x03}},
		BpmLockEntry{Enabled: true},
	}

	payload, err := MarshalMarkers2Payload(entries)
	require.NoError(t, err)

	decoded, err := ParseMarkers2Payload(payload)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)

	again, err := MarshalMarkers2Payload(decoded)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestMarkers2EncodeDecodeIdentity(t *testing.T) {
	var names []Entry
	names = append(names, ColorEntry{Color: domain.White})
	for i := 0; i < 8; i++ {
		names = append(names, NewCueEntry(uint8(i), uint32(i*15000), domain.ColorOrange.RGB(), "a fairly long cue name to push the body"))
	}
	names = append(names, BpmLockEntry{Enabled: true})

	data, err := EncodeMarkers2(names)
	require.NoError(t, err)
	assert.Greater(t, len(data), 2+markers2MinLen)

	decoded, err := DecodeMarkers2(data)
	require.NoError(t, err)
	again, err := EncodeMarkers2(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestMarkers2UnknownEntryTolerated(t *testing.T) {
	payload := []byte{0x01, 0x01}
	payload = append(payload, "WHAT\x00"...)
	payload = binary.BigEndian.AppendUint32(payload, 2)
	payload = append(payload, 0xaa, 0xbb)
	payload = append(payload, "BPMLOCK\x00"...)
	payload = binary.BigEndian.AppendUint32(payload, 1)
	payload = append(payload, 0x01, 0x00)

	entries, err := ParseMarkers2Payload(payload)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, UnknownEntry{Name: "WHAT", Data: []byte{0xaa, 0xbb}}, entries[0])
	assert.Equal(t, BpmLockEntry{Enabled: true}, entries[1])
}

func TestMarkers2Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"bad version", []byte{0x02, 0x01, 0x00}},
		{"empty", nil},
		{"length past end", append([]byte{0x01, 0x01, 'C', 'U', 'E', 0x00}, 0x00, 0x00, 0x00, 0x40, 0x00)},
		{"short cue", append([]byte{0x01, 0x01, 'C', 'U', 'E', 0x00}, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00)},
		{"short color", append([]byte{0x01, 0x01, 'C', 'O', 'L', 'O', 'R', 0x00}, 0x00, 0x00, 0x00, 0x01, 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMarkers2Payload(tt.payload)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}

	_, err := DecodeMarkers2([]byte{0x00})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestMarkers2FlipDecodesButDoesNotEncode(t *testing.T) {
	data := []byte{0x00, 0x02, 0x01}
	data = append(data, "flip\x00"...)
	data = append(data, 0x00)
	data = binary.BigEndian.AppendUint32(data, 1)
	data = append(data, byte(FlipJump))
	data = binary.BigEndian.AppendUint32(data, 16)
	data = binary.BigEndian.AppendUint64(data, math.Float64bits(1.5))
	data = binary.BigEndian.AppendUint64(data, math.Float64bits(3.25))

	payload := []byte{0x01, 0x01}
	payload = append(payload, "FLIP\x00"...)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(data)))
	payload = append(payload, data...)

	entries, err := ParseMarkers2Payload(payload)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	flip, ok := entries[0].(FlipEntry)
	require.True(t, ok)
	assert.Equal(t, "flip", flip.Name)
	assert.Equal(t, uint8(2), flip.Index)
	assert.True(t, flip.Enabled)
	require.Len(t, flip.Actions, 1)
	assert.Equal(t, []float64{1.5, 3.25}, flip.Actions[0].Values)

	_, err = MarshalMarkers2Payload(entries)
	assert.ErrorIs(t, err, ErrUnsupportedEntry)
}
