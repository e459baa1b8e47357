package tagio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	id3HeaderSize = 10
	id3Padding    = 1024
	geobMIME      = "application/octet-stream"
)

var errID3Unsupported = errors.New("unsupported ID3v2 tag")

// id3Frame is a raw ID3v2.3/2.4 frame.
type id3Frame struct {
	ID    string
	Flags [2]byte
	Body  []byte
}

// id3Tag is a parsed ID3v2 tag. Audio is everything after it.
type id3Tag struct {
	Major  byte
	Frames []id3Frame
	Audio  []byte
}

func synchsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

func appendSynchsafe(b []byte, n int) []byte {
	return append(b, byte(n>>21)&0x7f, byte(n>>14)&0x7f, byte(n>>7)&0x7f, byte(n)&0x7f)
}

// id3v2Size returns the byte length of a leading ID3v2 tag, or 0.
func id3v2Size(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	var hdr [id3HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil
		}
		return 0, err
	}
	if string(hdr[:3]) != "ID3" {
		return 0, nil
	}
	size := int64(id3HeaderSize + synchsafe(hdr[6:10]))
	if hdr[5]&0x10 != 0 {
		size += id3HeaderSize
	}
	return size, nil
}

// parseID3 splits a file into its ID3v2 frames and the audio data. Files
// without a tag yield an empty v2.4 tag.
func parseID3(data []byte) (*id3Tag, error) {
	if len(data) < id3HeaderSize || string(data[:3]) != "ID3" {
		return &id3Tag{Major: 4, Audio: data}, nil
	}
	major, flags := data[3], data[5]
	if major != 3 && major != 4 {
		return nil, fmt.Errorf("%w: version 2.%d", errID3Unsupported, major)
	}
	if flags&0x80 != 0 {
		return nil, fmt.Errorf("%w: unsynchronised tag", errID3Unsupported)
	}
	size := synchsafe(data[6:10])
	end := id3HeaderSize + size
	if end > len(data) {
		return nil, fmt.Errorf("%w: tag size %d exceeds file", errID3Unsupported, size)
	}
	body := data[id3HeaderSize:end]
	if flags&0x10 != 0 {
		end += id3HeaderSize
	}

	if flags&0x40 != 0 {
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: truncated extended header", errID3Unsupported)
		}
		skip := synchsafe(body[:4])
		if major == 3 {
			skip = int(binary.BigEndian.Uint32(body[:4])) + 4
		}
		if skip > len(body) {
			return nil, fmt.Errorf("%w: extended header size %d", errID3Unsupported, skip)
		}
		body = body[skip:]
	}

	tag := &id3Tag{Major: major, Audio: data[end:]}
	for len(body) >= 10 && body[0] != 0 {
		id := string(body[:4])
		var n int
		if major == 4 {
			n = synchsafe(body[4:8])
		} else {
			n = int(binary.BigEndian.Uint32(body[4:8]))
		}
		if 10+n > len(body) {
			return nil, fmt.Errorf("%w: frame %s size %d exceeds tag", errID3Unsupported, id, n)
		}
		tag.Frames = append(tag.Frames, id3Frame{
			ID:    id,
			Flags: [2]byte{body[8], body[9]},
			Body:  append([]byte(nil), body[10:10+n]...),
		})
		body = body[10+n:]
	}
	return tag, nil
}

// Bytes serializes the tag followed by the audio data.
func (t *id3Tag) Bytes() []byte {
	var frames bytes.Buffer
	for _, f := range t.Frames {
		frames.WriteString(f.ID)
		var size []byte
		if t.Major == 4 {
			size = appendSynchsafe(nil, len(f.Body))
		} else {
			size = binary.BigEndian.AppendUint32(nil, uint32(len(f.Body)))
		}
		frames.Write(size)
		frames.Write(f.Flags[:])
		frames.Write(f.Body)
	}
	frames.Write(make([]byte, id3Padding))

	out := make([]byte, 0, id3HeaderSize+frames.Len()+len(t.Audio))
	out = append(out, 'I', 'D', '3', t.Major, 0, 0)
	out = appendSynchsafe(out, frames.Len())
	out = append(out, frames.Bytes()...)
	return append(out, t.Audio...)
}

// key identifies a frame for replacement: user frames are keyed by their
// description as well.
func (f id3Frame) key() string {
	switch f.ID {
	case "GEOB":
		if g, err := parseGEOB(f.Body); err == nil {
			return "GEOB:" + g.Description
		}
	case "TXXX":
		if len(f.Body) > 1 {
			if desc, _, err := splitEncoded(f.Body[0], f.Body[1:]); err == nil {
				return "TXXX:" + decodeText(f.Body[0], desc)
			}
		}
	}
	return f.ID
}

// Set adds f, replacing a frame with the same key. With keep set an
// existing frame wins and false is returned.
func (t *id3Tag) Set(f id3Frame, keep bool) bool {
	k := f.key()
	for i, old := range t.Frames {
		if old.key() != k {
			continue
		}
		if keep {
			return false
		}
		t.Frames[i] = f
		return true
	}
	t.Frames = append(t.Frames, f)
	return true
}

// geob is a general encapsulated object frame.
type geob struct {
	MIME        string
	Filename    string
	Description string
	Data        []byte
}

func parseGEOB(body []byte) (geob, error) {
	var g geob
	if len(body) < 2 {
		return g, fmt.Errorf("GEOB frame too short")
	}
	enc, rest := body[0], body[1:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return g, fmt.Errorf("GEOB MIME type not terminated")
	}
	g.MIME, rest = string(rest[:i]), rest[i+1:]
	name, rest, err := splitEncoded(enc, rest)
	if err != nil {
		return g, fmt.Errorf("GEOB filename: %w", err)
	}
	desc, rest, err := splitEncoded(enc, rest)
	if err != nil {
		return g, fmt.Errorf("GEOB description: %w", err)
	}
	g.Filename = decodeText(enc, name)
	g.Description = decodeText(enc, desc)
	g.Data = rest
	return g, nil
}

// geobFrame builds the frame Serato writes: Latin-1 text, an empty
// filename and the tag name as description.
func geobFrame(description string, data []byte) id3Frame {
	body := []byte{0x00}
	body = append(body, geobMIME...)
	body = append(body, 0x00, 0x00)
	body = append(body, description...)
	body = append(body, 0x00)
	body = append(body, data...)
	return id3Frame{ID: "GEOB", Body: body}
}

// splitEncoded cuts a terminated string of the given text encoding off b.
func splitEncoded(enc byte, b []byte) ([]byte, []byte, error) {
	if enc == 1 || enc == 2 {
		for i := 0; i+1 < len(b); i += 2 {
			if b[i] == 0 && b[i+1] == 0 {
				return b[:i], b[i+2:], nil
			}
		}
		return nil, nil, fmt.Errorf("string not terminated")
	}
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, nil, fmt.Errorf("string not terminated")
	}
	return b[:i], b[i+1:], nil
}

func decodeText(enc byte, b []byte) string {
	var out []byte
	var err error
	switch enc {
	case 0:
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(b)
	case 1:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
	case 2:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	default:
		return string(b)
	}
	if err != nil {
		return string(b)
	}
	return string(out)
}

// textFrame encodes a text information frame for the tag version: UTF-8
// for v2.4 and UTF-16 with BOM for v2.3.
func textFrame(major byte, id, text string) id3Frame {
	enc, data := encodeText(major, text)
	return id3Frame{ID: id, Body: append([]byte{enc}, data...)}
}

// commentFrame encodes a COMM frame with an empty language-neutral
// description.
func commentFrame(major byte, text string) id3Frame {
	enc, data := encodeText(major, text)
	body := []byte{enc, 'e', 'n', 'g'}
	if enc == 1 {
		body = append(body, 0xff, 0xfe, 0x00, 0x00)
	} else {
		body = append(body, 0x00)
	}
	return id3Frame{ID: "COMM", Body: append(body, data...)}
}

func encodeText(major byte, text string) (byte, []byte) {
	if major == 4 {
		return 3, []byte(text)
	}
	data, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	if err != nil {
		return 0, []byte(text)
	}
	return 1, data
}
