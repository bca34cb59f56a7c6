package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trato-app/trato-backend/pkg/enums"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/outbox/payloads"
)

func newTestConsumer(t *testing.T, repo repository) *Consumer {
	t.Helper()
	return &Consumer{
		repo: repo,
		logg: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func orderPayload(t *testing.T, payload payloads.OrderStatusChanged) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func notificationsByRole(repo *stubNotificationsRepo, role enums.MemberRole) []int {
	var idx []int
	for i, n := range repo.rows {
		if n.Role == role {
			idx = append(idx, i)
		}
	}
	return idx
}

func TestOrderPlacedNotifiesBuyerAndSeller(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)
	orderID := uuid.New()

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:      orderID,
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		DeliveryType: enums.DeliveryTypePickup,
		To:           enums.OrderStatusPending,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 2)
	assert.Len(t, notificationsByRole(repo, enums.MemberRoleBuyer), 1)
	sellerIdx := notificationsByRole(repo, enums.MemberRoleSeller)
	require.Len(t, sellerIdx, 1)
	assert.Equal(t, enums.NotificationTypeOrderPlaced, repo.rows[sellerIdx[0]].Type)
	require.NotNil(t, repo.rows[0].Link)
	assert.Contains(t, *repo.rows[0].Link, orderID.String())
}

func TestOrderAcceptedNotifiesBuyerOnly(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:  uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		From:     enums.OrderStatusPending,
		To:       enums.OrderStatusAccepted,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, enums.MemberRoleBuyer, repo.rows[0].Role)
	assert.Equal(t, enums.NotificationTypeOrderAccepted, repo.rows[0].Type)
}

func TestOrderAssignedNotifiesDriver(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)
	driverID := uuid.New()

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:  uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		DriverID: &driverID,
		From:     enums.OrderStatusReady,
		To:       enums.OrderStatusAssigned,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 2)
	driverIdx := notificationsByRole(repo, enums.MemberRoleDriver)
	require.Len(t, driverIdx, 1)
	assert.Equal(t, driverID, repo.rows[driverIdx[0]].RecipientID)
	assert.Equal(t, enums.NotificationTypeOrderAssigned, repo.rows[driverIdx[0]].Type)
}

func TestOrderReadyDeliveryAlertsDispatchPool(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:      uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		DeliveryType: enums.DeliveryTypeDelivery,
		From:         enums.OrderStatusAccepted,
		To:           enums.OrderStatusReady,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 2)
	assert.Len(t, notificationsByRole(repo, enums.MemberRoleBuyer), 1)
	driverIdx := notificationsByRole(repo, enums.MemberRoleDriver)
	require.Len(t, driverIdx, 1)
	dispatch := repo.rows[driverIdx[0]]
	assert.Equal(t, DispatchPoolRecipient, dispatch.RecipientID)
	assert.Equal(t, enums.NotificationTypeOrderReady, dispatch.Type)
}

func TestOrderReadyPickupSkipsDispatchPool(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:      uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		DeliveryType: enums.DeliveryTypePickup,
		From:         enums.OrderStatusAccepted,
		To:           enums.OrderStatusReady,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, enums.MemberRoleBuyer, repo.rows[0].Role)
	assert.Empty(t, notificationsByRole(repo, enums.MemberRoleDriver))
}

func TestOrderCancelledNotifiesBothSides(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		OrderID:  uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		From:     enums.OrderStatusAccepted,
		To:       enums.OrderStatusCancelled,
	}), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 2)
	assert.Len(t, notificationsByRole(repo, enums.MemberRoleBuyer), 1)
	assert.Len(t, notificationsByRole(repo, enums.MemberRoleSeller), 1)
}

func TestOrderEventRejectsMissingOrderID(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)

	err := c.handleOrderEvent(context.Background(), orderPayload(t, payloads.OrderStatusChanged{
		BuyerID: uuid.New(),
		To:      enums.OrderStatusAccepted,
	}), context.Background())
	require.Error(t, err)
	assert.Empty(t, repo.rows)
}

func TestStockDepletedNotifiesSeller(t *testing.T) {
	repo := &stubNotificationsRepo{}
	c := newTestConsumer(t, repo)
	sellerID := uuid.New()

	data, err := json.Marshal(payloads.StockChanged{
		ProductKind: enums.ProductKindStanding,
		ProductID:   uuid.New(),
		SellerID:    sellerID,
		Name:        "sourdough",
		Delta:       -2,
		Remaining:   0,
		OrderID:     uuid.New(),
	})
	require.NoError(t, err)

	require.NoError(t, c.handleStockDepleted(context.Background(), data, context.Background()))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, sellerID, repo.rows[0].RecipientID)
	assert.Equal(t, enums.NotificationTypeStockDepleted, repo.rows[0].Type)
	assert.Contains(t, repo.rows[0].Message, "sourdough")
}

func TestNotificationTypeMapping(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusAccepted,
		enums.OrderStatusReady,
		enums.OrderStatusAssigned,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		_, ok := notificationTypeFor(status)
		assert.True(t, ok, "status %s should map to a notification type", status)
	}

	_, ok := notificationTypeFor(enums.OrderStatus("bogus"))
	assert.False(t, ok)
}
