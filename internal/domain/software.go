package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Software is a DJ program whose library format can be read or written.
type Software string

const (
	SoftwareSerato    Software = "serato"
	SoftwareRekordbox Software = "rekordbox"
	SoftwareTraktor   Software = "traktor"
)

// ParseSoftware accepts the CLI spellings of each program.
func ParseSoftware(s string) (Software, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serato", "sdjpro", "serato_dj_pro":
		return SoftwareSerato, nil
	case "rekordbox", "rb":
		return SoftwareRekordbox, nil
	case "traktor", "tp":
		return SoftwareTraktor, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSoftware, s)
	}
}

// SoftwareInfo is a program together with its release version.
type SoftwareInfo struct {
	Software Software `json:"software" yaml:"software"`
	Version  [3]int   `json:"version" yaml:"version"`
}

func (s SoftwareInfo) String() string {
	return fmt.Sprintf("%s %d.%d.%d", s.Software, s.Version[0], s.Version[1], s.Version[2])
}

// ParseVersion reads "7.1.3" style strings; missing parts are zero.
func ParseVersion(s string) ([3]int, error) {
	var v [3]int
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("invalid version %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return v, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v[i] = n
	}
	return v, nil
}

// Transformation selects the rules for one conversion. It does not change
// while a playlist is converted.
type Transformation struct {
	Source SoftwareInfo `json:"source"`
	Target SoftwareInfo `json:"target"`
}
