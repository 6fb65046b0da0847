package enums

import "fmt"

// OutboxDLQErrorReason explains why the publisher stopped retrying an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	for _, candidate := range validOutboxDLQErrorReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dlq error reason %q", value)
}
