package reindex

import "errors"

// ErrInvalidMaxAttempts is returned when RetryWithBackoff is called with a
// maxAttempts value less than 1.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
