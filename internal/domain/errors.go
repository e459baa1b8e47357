package domain

import "errors"

var (
	ErrUnsupportedSoftware = errors.New("unsupported software")
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
)
