package domain

import "strconv"

// Key notations. The canonical form is the classic one used by Serato
// ("Amin", "C#maj").

var classicToCamelot = map[string]string{
	"Cmaj": "8B", "C#maj": "3B", "Dbmaj": "3B", "Dmaj": "10B", "Ebmaj": "5B",
	"Emaj": "12B", "Fmaj": "7B", "F#maj": "2B", "Gbmaj": "2B", "Gmaj": "9B",
	"Abmaj": "4B", "Amaj": "11B", "Bbmaj": "6B", "Bmaj": "1B",
	"Ami": "8A", "Amin": "8A", "A#min": "3A", "Bbmin": "3A", "Bmi": "10A",
	"Bmin": "10A", "Cmi": "5A", "Cmin": "5A", "C#min": "12A", "Dbmin": "12A",
	"Dmi": "7A", "Dmin": "7A", "D#min": "2A", "Ebmin": "2A", "Emi": "9A",
	"Emin": "9A", "Fmi": "4A", "Fmin": "4A", "F#min": "11A", "Gbmin": "11A",
	"Gmi": "6A", "Gmin": "6A", "G#min": "1A", "Abmin": "1A",
}

var classicToAbbrev = map[string]string{
	"Cmaj": "C", "C#maj": "C#", "Dbmaj": "Db", "Dmaj": "D", "D#maj": "D#",
	"Ebmaj": "Eb", "Emaj": "E", "Fmaj": "F", "F#maj": "F#", "Gbmaj": "Gb",
	"Gmaj": "G", "G#maj": "G#", "Abmaj": "Ab", "Amaj": "A", "A#maj": "A#",
	"Bbmaj": "Bb", "Bmaj": "B",
	"Cmin": "Cm", "Cmi": "Cm", "C#min": "C#m", "Dbmin": "Dbm", "Dmin": "Dm",
	"Dmi": "Dm", "D#min": "D#m", "Ebmin": "Ebm", "Emin": "Em", "Emi": "Em",
	"Fmin": "Fm", "Fmi": "Fm", "F#min": "F#m", "Gbmin": "Gbm", "Gmin": "Gm",
	"Gmi": "Gm", "G#min": "G#m", "Abmin": "Abm", "Amin": "Am", "Ami": "Am",
	"A#min": "A#m", "Bbmin": "Bbm", "Bmin": "Bm", "Bmi": "Bm",
}

var classicToOpenKey = map[string]string{
	"Cmaj": "1d", "C#maj": "8d", "Dbmaj": "8d", "Dmaj": "3d", "Ebmaj": "10d",
	"Emaj": "5d", "Fmaj": "12d", "F#maj": "7d", "Gbmaj": "7d", "Gmaj": "2d",
	"Abmaj": "9d", "Amaj": "4d", "Bbmaj": "11d", "Bmaj": "6d",
	"Ami": "1m", "Amin": "1m", "A#min": "8m", "Bbmin": "8m", "Bmi": "3m",
	"Bmin": "3m", "Cmi": "10m", "Cmin": "10m", "C#min": "5m", "Dbmin": "5m",
	"Dmi": "12m", "Dmin": "12m", "D#min": "7m", "Ebmin": "7m", "Emi": "2m",
	"Emin": "2m", "Fmi": "9m", "Fmin": "9m", "F#min": "4m", "Gbmin": "4m",
	"Gmi": "11m", "Gmin": "11m", "G#min": "6m", "Abmin": "6m",
}

// Preferred spellings when several classic names share a target value.
var preferredClassic = []string{
	"Cmaj", "C#maj", "Dmaj", "Ebmaj", "Emaj", "Fmaj", "F#maj", "Gmaj", "Abmaj",
	"Amaj", "Bbmaj", "Bmaj", "Amin", "Bbmin", "Bmin", "Cmin", "C#min", "Dmin",
	"Ebmin", "Emin", "Fmin", "F#min", "Gmin", "G#min",
	"Dbmaj", "Gbmaj", "D#maj", "G#maj", "A#maj", "A#min", "Dbmin", "D#min", "Gbmin", "Abmin",
}

// CamelotKey converts a classic key; ok is false for unknown keys.
func CamelotKey(classic string) (string, bool) {
	k, ok := classicToCamelot[classic]
	return k, ok
}

// AbbrevKey converts a classic key to the short form Rekordbox uses.
func AbbrevKey(classic string) (string, bool) {
	k, ok := classicToAbbrev[classic]
	return k, ok
}

// OpenKey converts a classic key to open-key notation ("1d", "8m").
func OpenKey(classic string) (string, bool) {
	k, ok := classicToOpenKey[classic]
	return k, ok
}

// ClassicFromAbbrev is the inverse of AbbrevKey.
func ClassicFromAbbrev(abbrev string) (string, bool) {
	return inverse(classicToAbbrev, abbrev)
}

// ClassicFromOpenKey is the inverse of OpenKey.
func ClassicFromOpenKey(open string) (string, bool) {
	return inverse(classicToOpenKey, open)
}

// OpenKeyNumber maps "1d".."12d" to 1..12 and "1m".."12m" to 13..24, the
// MUSICAL_KEY values used by Traktor.
func OpenKeyNumber(open string) (int, bool) {
	var n int
	var mode byte
	for i := 0; i < len(open); i++ {
		c := open[i]
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
		case i == len(open)-1 && (c == 'd' || c == 'm'):
			mode = c
		default:
			return 0, false
		}
	}
	if n < 1 || n > 12 || mode == 0 {
		return 0, false
	}
	if mode == 'm' {
		n += 12
	}
	return n, true
}

// OpenKeyFromNumber is the inverse of OpenKeyNumber.
func OpenKeyFromNumber(n int) (string, bool) {
	switch {
	case n >= 1 && n <= 12:
		return strconv.Itoa(n) + "d", true
	case n >= 13 && n <= 24:
		return strconv.Itoa(n-12) + "m", true
	default:
		return "", false
	}
}

func inverse(m map[string]string, v string) (string, bool) {
	for _, k := range preferredClassic {
		if m[k] == v {
			return k, true
		}
	}
	return "", false
}
