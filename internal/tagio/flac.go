package tagio

import (
	"fmt"
	"os"
	"strings"

	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"
)

// flacComments edits the Vorbis comment block of a parsed FLAC file.
type flacComments struct {
	file  *flac.File
	index int
	cmt   *flacvorbis.MetaDataBlockVorbisComment
}

func openFLAC(path string) (*flacComments, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}
	fc := &flacComments{file: f, index: -1}
	for i, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Vorbis comments: %w", err)
		}
		fc.index, fc.cmt = i, cmt
		break
	}
	if fc.cmt == nil {
		fc.cmt = flacvorbis.New()
	}
	return fc, nil
}

func (fc *flacComments) has(key string) bool {
	prefix := strings.ToUpper(key) + "="
	for _, c := range fc.cmt.Comments {
		if strings.HasPrefix(strings.ToUpper(c), prefix) {
			return true
		}
	}
	return false
}

// set replaces every value of key. With keep set an existing value wins and
// false is returned.
func (fc *flacComments) set(key, value string, keep bool) (bool, error) {
	if fc.has(key) {
		if keep {
			return false, nil
		}
		prefix := strings.ToUpper(key) + "="
		kept := fc.cmt.Comments[:0]
		for _, c := range fc.cmt.Comments {
			if !strings.HasPrefix(strings.ToUpper(c), prefix) {
				kept = append(kept, c)
			}
		}
		fc.cmt.Comments = kept
	}
	if err := fc.cmt.Add(key, value); err != nil {
		return false, fmt.Errorf("failed to add comment %s: %w", key, err)
	}
	return true, nil
}

func (fc *flacComments) save(path string) error {
	block := fc.cmt.Marshal()
	if fc.index >= 0 {
		fc.file.Meta[fc.index] = &block
	} else {
		fc.file.Meta = append(fc.file.Meta, &block)
	}
	if err := fc.file.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

// flacStreamInfo returns the sample rate and duration of a FLAC file.
func flacStreamInfo(path string) (int, float64, error) {
	r, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()
	f, err := flac.ParseMetadata(r)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse FLAC file: %w", err)
	}
	info, err := f.GetStreamInfo()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read FLAC stream info: %w", err)
	}
	var duration float64
	if info.SampleRate > 0 {
		duration = float64(info.SampleCount) / float64(info.SampleRate)
	}
	return info.SampleRate, duration, nil
}
