package serato

import (
	"bytes"
	"io"
	"strconv"
)

var autoTagsVersion = [2]byte{0x01, 0x01}

// AutoTags holds the results of Serato's automatic analysis.
type AutoTags struct {
	BPM      float64
	AutoGain float64
	GainDB   float64
}

// DecodeAutoTags parses the three NUL-terminated decimal strings.
func DecodeAutoTags(data []byte) (AutoTags, error) {
	var at AutoTags
	if len(data) < 2 || data[0] != autoTagsVersion[0] || data[1] != autoTagsVersion[1] {
		return at, formatErrorf("autotags: bad version header")
	}
	r := bytes.NewReader(data[2:])
	fields := []*float64{&at.BPM, &at.AutoGain, &at.GainDB}
	for i, f := range fields {
		s, err := readCString(r)
		if err != nil && err != io.EOF {
			return at, formatErrorf("autotags: field %d: %v", i, err)
		}
		if err == io.EOF && s == "" {
			return at, formatErrorf("autotags: missing field %d", i)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return at, formatErrorf("autotags: field %d: %v", i, err)
		}
		*f = v
	}
	return at, nil
}

// EncodeAutoTags formats bpm with two decimals and the gains with three.
func EncodeAutoTags(at AutoTags) []byte {
	b := append([]byte(nil), autoTagsVersion[:]...)
	b = strconv.AppendFloat(b, at.BPM, 'f', 2, 64)
	b = append(b, 0x00)
	b = strconv.AppendFloat(b, at.AutoGain, 'f', 3, 64)
	b = append(b, 0x00)
	b = strconv.AppendFloat(b, at.GainDB, 'f', 3, 64)
	return append(b, 0x00)
}
