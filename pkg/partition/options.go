package partition

import "go.uber.org/zap"

// OverwritePolicy decides what the driver does when a layer's output
// directory already exists.
type OverwritePolicy int

const (
	// PolicyAbort refuses to touch a pre-existing output directory; the
	// layer's partitioning fails with ErrOutputConflict.
	PolicyAbort OverwritePolicy = iota
	// PolicyReplace removes a pre-existing output directory and recreates
	// it empty.
	PolicyReplace
)

// Options configures a Driver.
type Options struct {
	// Overwrite selects the pre-existing output directory policy.
	Overwrite OverwritePolicy

	// Progress, if set, is called after each feature is classified.
	Progress func(done, total int)

	// Logger receives diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// DefaultOptions returns the default driver configuration: abort on output
// conflicts, no progress reporting, no logging.
func DefaultOptions() Options {
	return Options{
		Overwrite: PolicyAbort,
		Logger:    zap.NewNop(),
	}
}
