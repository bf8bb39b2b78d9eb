package geostore

import (
	"errors"
	"fmt"
)

var (
	errTruncatedShape   = errors.New("truncated shape record")
	errUnsupportedShape = errors.New("unsupported shape type")
)

// ErrInvalidSource indicates a source collection that could not be opened
// or parsed. The source is skipped; processing continues with the rest.
type ErrInvalidSource struct {
	Path   string
	Reason string
}

func (e *ErrInvalidSource) Error() string {
	return fmt.Sprintf("invalid source %s: %s", e.Path, e.Reason)
}
