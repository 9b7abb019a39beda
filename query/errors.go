package query

import "errors"

var (
	// ErrMissingMessageFilter indicates a query with neither content nor regex.
	ErrMissingMessageFilter = errors.New("query: content or regex required")

	// ErrInvalidTime indicates a time expression ParseTime does not accept.
	ErrInvalidTime = errors.New("query: invalid time")

	// ErrFetchFailed indicates the record store could not answer.
	ErrFetchFailed = errors.New("query: fetch failed")

	// ErrMissingCache indicates a Service built without a cache.
	ErrMissingCache = errors.New("query: cache is required")

	// ErrMissingStore indicates a Service built without a record store.
	ErrMissingStore = errors.New("query: record store is required")
)
