package tagio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// mpegInfo is what the first MPEG audio frame tells about a stream.
type mpegInfo struct {
	BitRate    int // bits per second
	SampleRate int
	Duration   float64
	Encoder    *domain.Encoder
}

var mpegBitRates = [2][3][16]int{
	// MPEG 1: layer I, II, III
	{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},
	},
	// MPEG 2 and 2.5
	{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
	},
}

var mpegSampleRates = map[byte][3]int{
	3: {44100, 48000, 32000}, // MPEG 1
	2: {22050, 24000, 16000}, // MPEG 2
	0: {11025, 12000, 8000},  // MPEG 2.5
}

// mpegScanLimit bounds how far past the ID3 tag the first frame is searched.
const mpegScanLimit = 64 * 1024

var lameVersion = regexp.MustCompile(`^LAME(\d+)\.(\d+)`)

// readMPEGInfo locates the first frame after the ID3v2 tag and decodes its
// header together with a Xing/Info and LAME header when present.
func readMPEGInfo(r io.ReadSeeker, size int64) (mpegInfo, error) {
	var info mpegInfo
	start, err := id3v2Size(r)
	if err != nil {
		return info, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return info, err
	}
	buf := make([]byte, mpegScanLimit)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return info, err
	}
	buf = buf[:n]

	off := -1
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == 0xff && buf[i+1]&0xe0 == 0xe0 && validFrameHeader(buf[i:]) {
			off = i
			break
		}
	}
	if off < 0 {
		return info, fmt.Errorf("%w: no MPEG frame found", domain.ErrUnsupportedFormat)
	}

	h := binary.BigEndian.Uint32(buf[off:])
	version := byte(h>>19) & 0x3
	layer := 3 - int(h>>17&0x3)
	mpeg1 := version == 3
	table := 1
	if mpeg1 {
		table = 0
	}
	info.BitRate = mpegBitRates[table][layer][h>>12&0xf] * 1000
	info.SampleRate = mpegSampleRates[version][h>>10&0x3]
	mono := h>>6&0x3 == 3

	samplesPerFrame := 1152
	switch {
	case layer == 0:
		samplesPerFrame = 384
	case layer == 2 && !mpeg1:
		samplesPerFrame = 576
	}

	// Side information precedes the Xing header.
	sideInfo := 32
	switch {
	case mpeg1 && mono:
		sideInfo = 17
	case !mpeg1 && mono:
		sideInfo = 9
	case !mpeg1:
		sideInfo = 17
	}
	xing := off + 4 + sideInfo
	frames := 0
	if xing+8 <= len(buf) {
		tag := string(buf[xing : xing+4])
		if tag == "Xing" || tag == "Info" {
			flags := binary.BigEndian.Uint32(buf[xing+4:])
			p := xing + 8
			if flags&0x1 != 0 && p+4 <= len(buf) {
				frames = int(binary.BigEndian.Uint32(buf[p:]))
				p += 4
			}
			if flags&0x2 != 0 {
				p += 4
			}
			if flags&0x4 != 0 {
				p += 100
			}
			if flags&0x8 != 0 {
				p += 4
			}
			if p+9 <= len(buf) {
				info.Encoder = encoderFromLAMETag(buf[p:p+9], tag == "Xing")
			}
		}
	}

	switch {
	case frames > 0 && info.SampleRate > 0:
		info.Duration = float64(frames*samplesPerFrame) / float64(info.SampleRate)
	case info.BitRate > 0:
		info.Duration = float64(size-start-int64(off)) * 8 / float64(info.BitRate)
	}
	return info, nil
}

func validFrameHeader(b []byte) bool {
	h := binary.BigEndian.Uint32(b)
	version := byte(h>>19) & 0x3
	layerBits := h >> 17 & 0x3
	bitrate := h >> 12 & 0xf
	rate := h >> 10 & 0x3
	return version != 1 && layerBits != 0 && bitrate != 0 && bitrate != 0xf && rate != 3
}

// encoderFromLAMETag formats the 9-byte encoder string of a LAME header the
// way tag editors show it, e.g. "LAME 3.100.0+".
func encoderFromLAMETag(b []byte, vbr bool) *domain.Encoder {
	text := string(bytes.TrimRight(b, "\x00 "))
	if text == "" {
		return nil
	}
	mode := domain.EncoderModeCBR
	if vbr {
		mode = domain.EncoderModeVBR
	}
	if m := lameVersion.FindStringSubmatch(text); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return &domain.Encoder{Text: fmt.Sprintf("LAME %d.%d.0+", major, minor), Mode: mode}
	}
	return &domain.Encoder{Text: text, Mode: mode}
}
