package serato

import "github.com/jaki95/dj-cue-converter/internal/domain"

// Analysis is the analysis version stored by Serato, e.g. [2 1] for MP3.
type Analysis struct {
	Version []int
}

// DecodeAnalysis reads the version bytes. FLAC and M4A files carry
// [0 1 0], from which the trailing 0 is dropped.
func DecodeAnalysis(data []byte, f domain.Format) (Analysis, error) {
	var version []byte
	switch f {
	case domain.FormatMP3:
		if len(data) != 2 {
			return Analysis{}, formatErrorf("analysis: expected 2 bytes, got %d", len(data))
		}
		version = data
	case domain.FormatFLAC, domain.FormatM4A:
		switch len(data) {
		case 2:
			version = data
		case 3:
			version = data[:2]
			if data[2] != 0 {
				version = data
			}
		default:
			return Analysis{}, formatErrorf("analysis: expected 2 or 3 bytes, got %d", len(data))
		}
	default:
		return Analysis{}, domain.ErrUnsupportedFormat
	}

	a := Analysis{Version: make([]int, len(version))}
	for i, v := range version {
		a.Version[i] = int(v)
	}
	return a, nil
}

// EncodeAnalysis returns the raw version bytes.
func EncodeAnalysis(a Analysis) []byte {
	b := make([]byte, len(a.Version))
	for i, v := range a.Version {
		b[i] = byte(v)
	}
	return b
}

// DefaultAnalysis is the version Serato DJ Pro writes for a format.
func DefaultAnalysis(f domain.Format) (Analysis, error) {
	switch f {
	case domain.FormatMP3:
		return Analysis{Version: []int{2, 1}}, nil
	case domain.FormatFLAC, domain.FormatM4A:
		return Analysis{Version: []int{0, 1, 0}}, nil
	default:
		return Analysis{}, domain.ErrUnsupportedFormat
	}
}
