package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/outbox"
	"github.com/trato-app/trato-backend/pkg/outbox/idempotency"
	"github.com/trato-app/trato-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

// DispatchPoolRecipient addresses driver alerts for orders that have no
// driver bound yet. Driver listings include its rows alongside their own.
var DispatchPoolRecipient = uuid.Nil

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns order and stock changes into
// in-app notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

var orderEventTypes = map[string]bool{
	string(enums.EventOrderPlaced):       true,
	string(enums.EventOrderAccepted):     true,
	string(enums.EventOrderStateChanged): true,
	string(enums.EventOrderCancelled):    true,
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	isOrderEvent := orderEventTypes[eventType]
	isStockEvent := eventType == string(enums.EventStockDepleted)
	if !isOrderEvent && !isStockEvent {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var handleErr error
	if isStockEvent {
		handleErr = c.handleStockDepleted(ctx, envelope.Data, logCtx)
	} else {
		handleErr = c.handleOrderEvent(ctx, envelope.Data, logCtx)
	}
	if handleErr != nil {
		c.logg.Error(logCtx, "notification handling failed", handleErr)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

// handleOrderEvent fans one status change out to every interested recipient.
// Recipient failures are aggregated so one bad write does not hide the rest.
func (c *Consumer) handleOrderEvent(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderStatusChanged
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("order id missing")
	}

	notificationType, ok := notificationTypeFor(payload.To)
	if !ok {
		c.logg.Info(logCtx, "status not handled")
		return nil
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	var errs error

	buyer := &models.Notification{
		RecipientID: payload.BuyerID,
		Role:        enums.MemberRoleBuyer,
		Type:        notificationType,
		Title:       buyerTitleFor(payload.To),
		Message:     fmt.Sprintf("Your order %s is now %s.", shortID(payload.OrderID), payload.To),
		Link:        stringPtr(link),
	}
	errs = multierr.Append(errs, c.repo.Create(ctx, buyer))

	if payload.To == enums.OrderStatusPending {
		seller := &models.Notification{
			RecipientID: payload.SellerID,
			Role:        enums.MemberRoleSeller,
			Type:        enums.NotificationTypeOrderPlaced,
			Title:       "New order received",
			Message:     fmt.Sprintf("Order %s is waiting for your acceptance.", shortID(payload.OrderID)),
			Link:        stringPtr(link),
		}
		errs = multierr.Append(errs, c.repo.Create(ctx, seller))
	}

	if payload.To == enums.OrderStatusCancelled {
		seller := &models.Notification{
			RecipientID: payload.SellerID,
			Role:        enums.MemberRoleSeller,
			Type:        enums.NotificationTypeOrderCancelled,
			Title:       "Order cancelled",
			Message:     fmt.Sprintf("Order %s was cancelled.", shortID(payload.OrderID)),
			Link:        stringPtr(link),
		}
		errs = multierr.Append(errs, c.repo.Create(ctx, seller))
	}

	// Ready delivery orders have no driver yet, so the alert goes to the
	// shared dispatch recipient that every driver's listing includes.
	if payload.To == enums.OrderStatusReady && payload.DeliveryType.RequiresDriver() {
		dispatch := &models.Notification{
			RecipientID: DispatchPoolRecipient,
			Role:        enums.MemberRoleDriver,
			Type:        enums.NotificationTypeOrderReady,
			Title:       "Delivery available",
			Message:     fmt.Sprintf("Order %s is ready for pickup.", shortID(payload.OrderID)),
			Link:        stringPtr(link),
		}
		errs = multierr.Append(errs, c.repo.Create(ctx, dispatch))
	}

	if payload.To == enums.OrderStatusAssigned && payload.DriverID != nil {
		driver := &models.Notification{
			RecipientID: *payload.DriverID,
			Role:        enums.MemberRoleDriver,
			Type:        enums.NotificationTypeOrderAssigned,
			Title:       "Delivery assigned",
			Message:     fmt.Sprintf("You are assigned to order %s.", shortID(payload.OrderID)),
			Link:        stringPtr(link),
		}
		errs = multierr.Append(errs, c.repo.Create(ctx, driver))
	}

	if errs == nil {
		c.logg.Info(logCtx, "order notifications written")
	}
	return errs
}

func (c *Consumer) handleStockDepleted(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.StockChanged
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse stock payload: %w", err)
	}
	if payload.SellerID == uuid.Nil {
		return fmt.Errorf("seller id missing")
	}

	notification := &models.Notification{
		RecipientID: payload.SellerID,
		Role:        enums.MemberRoleSeller,
		Type:        enums.NotificationTypeStockDepleted,
		Title:       "Product out of stock",
		Message:     fmt.Sprintf("%q sold out after order %s.", payload.Name, shortID(payload.OrderID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "seller notified of depleted stock")
	return nil
}

func notificationTypeFor(status enums.OrderStatus) (enums.NotificationType, bool) {
	switch status {
	case enums.OrderStatusPending:
		return enums.NotificationTypeOrderPlaced, true
	case enums.OrderStatusAccepted:
		return enums.NotificationTypeOrderAccepted, true
	case enums.OrderStatusReady:
		return enums.NotificationTypeOrderReady, true
	case enums.OrderStatusAssigned:
		return enums.NotificationTypeOrderAssigned, true
	case enums.OrderStatusPickedUp:
		return enums.NotificationTypeOrderPickedUp, true
	case enums.OrderStatusInTransit:
		return enums.NotificationTypeOrderInTransit, true
	case enums.OrderStatusDelivered:
		return enums.NotificationTypeOrderDelivered, true
	case enums.OrderStatusCancelled:
		return enums.NotificationTypeOrderCancelled, true
	}
	return "", false
}

func buyerTitleFor(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPending:
		return "Order placed"
	case enums.OrderStatusAccepted:
		return "Order accepted"
	case enums.OrderStatusReady:
		return "Order ready"
	case enums.OrderStatusAssigned:
		return "Driver assigned"
	case enums.OrderStatusPickedUp:
		return "Order picked up"
	case enums.OrderStatusInTransit:
		return "Order on its way"
	case enums.OrderStatusDelivered:
		return "Order delivered"
	case enums.OrderStatusCancelled:
		return "Order cancelled"
	}
	return "Order updated"
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

func stringPtr(value string) *string {
	return &value
}
