package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateContract OutboxAggregateType = "contract"
	AggregatePayment  OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateContract,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventContractCreated  OutboxEventType = "contract_created"
	EventContractUpdated  OutboxEventType = "contract_updated"
	EventContractCanceled OutboxEventType = "contract_canceled"
	EventContractExpired  OutboxEventType = "contract_expired"
	EventPaymentRecorded  OutboxEventType = "payment_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventContractCreated,
	EventContractUpdated,
	EventContractCanceled,
	EventContractExpired,
	EventPaymentRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
