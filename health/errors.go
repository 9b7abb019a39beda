package health

import "errors"

var (
	// ErrCheckTimeout indicates a check did not finish before the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrNotWritable indicates the cache persistence directory rejects writes.
	ErrNotWritable = errors.New("health: persistence directory not writable")
)
