package enums

import "slices"

// OutboxDLQErrorReason records why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: publishing kept failing until the retry
	// budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the row can never be published as stored.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains([]OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}, r)
}
