package batch

import "errors"

var (
	ErrQueueFailed  = errors.New("failed to queue batch job")
	ErrJobsDisabled = errors.New("async batch jobs are not configured")
)
