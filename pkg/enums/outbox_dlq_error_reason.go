package enums

// OutboxDLQErrorReason records why the publisher parked an event in outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnroutable marks events whose type or aggregate has no
	// registered topic, so no publish was attempted.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

// OutboxDLQErrorReasons lists every reason in the order the database enum
// declares them.
func OutboxDLQErrorReasons() []OutboxDLQErrorReason {
	return []OutboxDLQErrorReason{
		OutboxDLQReasonMaxAttempts,
		OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUnroutable,
	}
}

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnroutable:
		return true
	}
	return false
}

// Retryable reports whether an operator replaying the DLQ may expect the
// same event to succeed without a code or config change.
func (r OutboxDLQErrorReason) Retryable() bool {
	return r == OutboxDLQReasonMaxAttempts
}
