package crate

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16(s string) []byte {
	var b []byte
	for _, r := range s {
		b = binary.BigEndian.AppendUint16(b, uint16(r))
	}
	return b
}

func rawField(desc string, content []byte) []byte {
	b := []byte(desc)
	b = binary.BigEndian.AppendUint32(b, uint32(len(content)))
	return append(b, content...)
}

func TestTrackPathsSingleTrack(t *testing.T) {
	data := rawField("otrk", rawField("ptrk", utf16("Music/song.mp3")))

	fields, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, FieldTrack, fields[0].ID)
	assert.Equal(t, []string{"Music/song.mp3"}, TrackPaths(fields))

	out, err := Encode(fields)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecodeVersionDescriptor(t *testing.T) {
	data := rawField("vrsn", utf16(CrateVersion))
	fields, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, TextField(FieldVersion, CrateVersion), fields[0])

	out, err := Encode(fields)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecodeFieldTypes(t *testing.T) {
	var data []byte
	data = append(data, rawField("bbgl", []byte{1})...)
	data = append(data, rawField("bcrt", []byte{0})...)
	data = append(data, rawField("sbav", []byte{0x01, 0x02})...)
	data = append(data, rawField("uadd", []byte{0x60, 0x00, 0x00, 0x01})...)
	data = append(data, rawField("tadd", utf16("1600000001"))...)
	data = append(data, rawField("pfil", utf16("Users/dj/Music/ä.flac"))...)
	data = append(data, rawField("rxyz", rawField("tsng", utf16("Song")))...)
	data = append(data, rawField("zabc", []byte{0xde, 0xad})...)

	fields, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, fields, 8)

	assert.Equal(t, BoolField(FieldBeatgridLocked, true), fields[0])
	assert.Equal(t, Field{ID: FieldUnknown, Type: TypeBool, Name: "crt"}, fields[1])
	assert.Equal(t, Field{ID: FieldUnknown, Type: TypeU16, Name: "bav", Int: 0x0102}, fields[2])
	assert.Equal(t, FieldDateAdded, fields[3].ID)
	assert.Equal(t, uint32(0x60000001), fields[3].Int)
	assert.Equal(t, TextField(FieldDateAddedText, "1600000001"), fields[4])
	assert.Equal(t, TextField(FieldFilePath, "Users/dj/Music/ä.flac"), fields[5])
	assert.Equal(t, TypeContainerR, fields[6].Type)
	assert.Equal(t, []Field{TextField(FieldSongTitle, "Song")}, fields[6].Children)
	assert.Equal(t, Field{ID: FieldUnknown, Type: FieldType('z'), Name: "abc", Raw: []byte{0xde, 0xad}}, fields[7])

	out, err := Encode(fields)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecodeStopsAtShortDescriptor(t *testing.T) {
	data := append(rawField("tsng", utf16("a")), 'x', 'y')
	fields, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, fields, 1)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"missing length", []byte("tsng\x00\x00")},
		{"truncated content", append([]byte("tsng\x00\x00\x00\x10"), 0x00, 0x41)},
		{"bad bool", rawField("bbgl", []byte{1, 1})},
		{"bad u32", rawField("uadd", []byte{1})},
		{"bad nested", rawField("otrk", []byte("ptrk\x00\x00\x00\x09"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestTrackPathsSkipsOtherContainers(t *testing.T) {
	fields := []Field{
		TextField(FieldVersion, CrateVersion),
		ContainerField(FieldTrack, TextField(FieldTrackPath, "a.mp3")),
		ContainerField(FieldTrack),
		ContainerField(FieldTrack, TextField(FieldTrackPath, "b.mp3"), TextField(FieldTrackPath, "c.mp3")),
		ContainerField(FieldColumnTitle, TextField(FieldColumnName, "song")),
		ContainerField(FieldTrack, TextField(FieldTrackPath, "d.mp3")),
	}
	assert.Equal(t, []string{"a.mp3", "d.mp3"}, TrackPaths(fields))
}

func TestNewCrate(t *testing.T) {
	fields := New([]string{"/Users/dj/Music/one.mp3", "two.flac"})
	require.Len(t, fields, 2+len(defaultColumns)+2)
	assert.Equal(t, TextField(FieldVersion, CrateVersion), fields[0])
	assert.Equal(t, FieldSorting, fields[1].ID)
	assert.Equal(t, "playCount", fields[2].Children[0].Text)
	assert.Equal(t, []string{"Users/dj/Music/one.mp3", "two.flac"}, TrackPaths(fields))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, fields))
	decoded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
}
