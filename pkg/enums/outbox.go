package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateCommission  OutboxAggregateType = "commission"
	AggregatePixTransfer OutboxAggregateType = "pix_transfer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCommission,
	AggregatePixTransfer,
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
	EventOrderCompleted  OutboxEventType = "order.completed"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventOrderRefunded   OutboxEventType = "order.refunded"
	EventPayoutCompleted OutboxEventType = "payout.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderRefunded,
	EventPayoutCompleted,
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
