// Package retry implements exponential backoff retry for callers that
// append with an optimistic expected-version check and want to retry on
// losing the race rather than propagate the conflict.
//
// Only eventstore.ErrWrongExpectedVersion is retryable; every other error,
// including context cancellation, fails fast.
package retry
