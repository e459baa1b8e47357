package serato

var overviewVersion = [2]byte{0x01, 0x05}

// OverviewRow is one column of the waveform overview, 16 amplitude bytes.
type OverviewRow [16]byte

// Overview is the waveform summary Serato draws in its track overview.
type Overview struct {
	Rows []OverviewRow
}

func DecodeOverview(data []byte) (Overview, error) {
	if len(data) < 2 || data[0] != overviewVersion[0] || data[1] != overviewVersion[1] {
		return Overview{}, formatErrorf("overview: bad version header")
	}
	body := data[2:]
	if len(body)%16 != 0 {
		return Overview{}, formatErrorf("overview: %d bytes is not a whole number of rows", len(body))
	}
	ov := Overview{Rows: make([]OverviewRow, len(body)/16)}
	for i := range ov.Rows {
		copy(ov.Rows[i][:], body[i*16:])
	}
	return ov, nil
}

func EncodeOverview(ov Overview) []byte {
	b := make([]byte, 0, 2+16*len(ov.Rows))
	b = append(b, overviewVersion[:]...)
	for _, row := range ov.Rows {
		b = append(b, row[:]...)
	}
	return b
}

// RelVol is kept as raw bytes; its layout is not known.
type RelVol struct {
	Value []byte
}

func DecodeRelVol(data []byte) RelVol {
	return RelVol{Value: append([]byte(nil), data...)}
}

func EncodeRelVol(r RelVol) []byte {
	return r.Value
}
