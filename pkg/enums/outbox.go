package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateProduct      OutboxAggregateType = "product"
	AggregateDailyProduct OutboxAggregateType = "daily_product"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateDailyProduct,
	AggregateNotification,
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
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderAccepted      OutboxEventType = "order_accepted"
	EventOrderStateChanged  OutboxEventType = "order_state_changed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventStockDecremented   OutboxEventType = "stock_decremented"
	EventStockRestored      OutboxEventType = "stock_restored"
	EventStockDepleted      OutboxEventType = "stock_depleted"
	EventDailyListingPosted OutboxEventType = "daily_listing_posted"
	EventDailyListingClosed OutboxEventType = "daily_listing_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderAccepted,
	EventOrderStateChanged,
	EventOrderCancelled,
	EventStockDecremented,
	EventStockRestored,
	EventStockDepleted,
	EventDailyListingPosted,
	EventDailyListingClosed,
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
