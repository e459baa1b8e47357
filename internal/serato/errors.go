package serato

import (
	"errors"
	"fmt"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

var (
	// ErrFormat reports malformed tag data: a bad version header, a
	// truncated field or a structural violation.
	ErrFormat = errors.New("invalid serato tag format")

	// ErrUnsupportedEntry is returned when encoding an entry kind that can be
	// decoded but not written back (FLIP).
	ErrUnsupportedEntry = errors.New("unsupported serato entry")

	ErrNoTagName = errors.New("tag not used for this audio format")
)

// TagError records which tag failed to decode or encode.
type TagError struct {
	Tag    Tag
	Format domain.Format
	Err    error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("serato %s (%s): %v", e.Tag, e.Format, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
