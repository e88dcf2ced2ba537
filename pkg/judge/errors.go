package judge

import (
	"fmt"
	"time"
)

// ExecutionError reports a failed interaction with the judge service: a
// transport failure, a non-2xx response, or an unreadable body.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("judge %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned when the rolling call budget is exhausted. The
// caller may retry after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", int(e.RetryAfter.Seconds()))
}
