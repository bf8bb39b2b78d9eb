package partition

import "fmt"

// ErrInvalidConfiguration indicates a tiling request that cannot produce a
// scheme, such as a tile count below one.
type ErrInvalidConfiguration struct {
	Count  int
	Reason string
}

func (e *ErrInvalidConfiguration) Error() string {
	return fmt.Sprintf("invalid partition configuration (count=%d): %s", e.Count, e.Reason)
}

// ErrOutputConflict indicates the target output directory for a layer
// already exists and the abort policy is in effect.
type ErrOutputConflict struct {
	Path string
}

func (e *ErrOutputConflict) Error() string {
	return fmt.Sprintf("output directory already exists: %s", e.Path)
}
