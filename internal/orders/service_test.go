package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/internal/inventory"
	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/outbox"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order     *models.Order
	created   *models.Order
	createErr error
	rows      []models.Order
	next      *pagination.Cursor
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return s.rows, s.next, nil
}

func (s *stubOrdersRepo) FindOrdersBySeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return s.rows, s.next, nil
}

func (s *stubOrdersRepo) FindDriverQueue(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return s.rows, s.next, nil
}

func (s *stubOrdersRepo) MoveStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, now time.Time) (bool, error) {
	if s.order == nil || s.order.ID != id || s.order.Status != from {
		return false, nil
	}
	s.order.Status = to
	return true, nil
}

func (s *stubOrdersRepo) ClaimForDriver(ctx context.Context, id, driverID uuid.UUID, now time.Time) (bool, error) {
	if s.order == nil || s.order.ID != id {
		return false, nil
	}
	if s.order.Status != enums.OrderStatusReady || s.order.DriverID != nil || s.order.DeliveryType != enums.DeliveryTypeDelivery {
		return false, nil
	}
	s.order.Status = enums.OrderStatusAssigned
	s.order.DriverID = &driverID
	return true, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.EventType)
	}
	return types
}

type stubInventory struct {
	reconcileCalls int
	releaseCalls   int
	changes        []inventory.StockChange
	reconcileErr   error
}

func (s *stubInventory) Reconcile(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]inventory.StockChange, error) {
	s.reconcileCalls++
	if s.reconcileErr != nil {
		return nil, s.reconcileErr
	}
	return s.changes, nil
}

func (s *stubInventory) Release(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]inventory.StockChange, error) {
	s.releaseCalls++
	return s.changes, nil
}

type stubCatalog struct {
	standing map[uuid.UUID]*models.Product
	daily    map[uuid.UUID]*models.DailyProduct
}

func (s *stubCatalog) ResolveStanding(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.standing[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *stubCatalog) ResolveDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error) {
	product, ok := s.daily[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "daily product not found")
	}
	return product, nil
}

type serviceFixture struct {
	svc       Service
	repo      *stubOrdersRepo
	outbox    *stubOutbox
	inventory *stubInventory
	catalog   *stubCatalog
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := &stubOrdersRepo{}
	ob := &stubOutbox{}
	inv := &stubInventory{}
	cat := &stubCatalog{
		standing: make(map[uuid.UUID]*models.Product),
		daily:    make(map[uuid.UUID]*models.DailyProduct),
	}

	svc, err := NewService(repo, stubTxRunner{}, ob, inv, cat, Options{
		DeliveryFee: decimal.RequireFromString("3.50"),
	})
	require.NoError(t, err)

	return &serviceFixture{svc: svc, repo: repo, outbox: ob, inventory: inv, catalog: cat}
}

func strPtr(v string) *string { return &v }

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	return typed.Code()
}

func pendingOrder(f *serviceFixture, deliveryType enums.DeliveryType) *models.Order {
	order := &models.Order{
		ID:           uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		Status:       enums.OrderStatusPending,
		DeliveryType: deliveryType,
		Items: []models.OrderLineItem{
			{ID: uuid.New(), ProductKind: enums.ProductKindStanding, Name: "rye", Quantity: 2},
		},
	}
	f.repo.order = order
	return order
}

func TestCheckoutDeliveryOrder(t *testing.T) {
	f := newServiceFixture(t)
	buyer := Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer}
	sellerID := uuid.New()
	productID := uuid.New()
	f.catalog.standing[productID] = &models.Product{
		ID: productID, SellerID: sellerID, Name: "sourdough",
		Price: decimal.RequireFromString("4.25"), StockQuantity: 10, IsAvailable: true,
	}

	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        buyer,
		SellerID:     sellerID,
		DeliveryType: enums.DeliveryTypeDelivery,
		Address:      strPtr("123 Mercado St"),
		Items: []CheckoutItem{
			{Kind: enums.ProductKindStanding, ProductID: productID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "8.50", order.Subtotal.StringFixed(2))
	assert.Equal(t, "3.50", order.DeliveryFee.StringFixed(2))
	assert.Equal(t, "12.00", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "sourdough", order.Items[0].Name)
	assert.Equal(t, "4.25", order.Items[0].UnitPrice.StringFixed(2))
	require.NotNil(t, f.repo.created)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, f.outbox.eventTypes())
}

func TestCheckoutPickupSkipsDeliveryFee(t *testing.T) {
	f := newServiceFixture(t)
	sellerID := uuid.New()
	productID := uuid.New()
	f.catalog.standing[productID] = &models.Product{
		ID: productID, SellerID: sellerID, Name: "bolillo",
		Price: decimal.RequireFromString("1.00"), StockQuantity: 5, IsAvailable: true,
	}

	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer},
		SellerID:     sellerID,
		DeliveryType: enums.DeliveryTypePickup,
		Items: []CheckoutItem{
			{Kind: enums.ProductKindStanding, ProductID: productID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.True(t, order.DeliveryFee.IsZero())
	assert.Equal(t, "3.00", order.Total.StringFixed(2))
}

func TestCheckoutDuplicateInsertIsConflict(t *testing.T) {
	f := newServiceFixture(t)
	sellerID := uuid.New()
	productID := uuid.New()
	f.catalog.standing[productID] = &models.Product{
		ID: productID, SellerID: sellerID, Name: "bolillo",
		Price: decimal.RequireFromString("1.00"), StockQuantity: 5, IsAvailable: true,
	}
	f.repo.createErr = &pq.Error{Code: "23505", Constraint: "orders_pkey"}

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer},
		SellerID:     sellerID,
		DeliveryType: enums.DeliveryTypePickup,
		Items: []CheckoutItem{
			{Kind: enums.ProductKindStanding, ProductID: productID, Quantity: 1},
		},
	})
	assert.Equal(t, pkgerrors.CodeConflict, errCode(t, err))
}

func TestCheckoutDeliveryRequiresAddress(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer},
		SellerID:     uuid.New(),
		DeliveryType: enums.DeliveryTypeDelivery,
		Items: []CheckoutItem{
			{Kind: enums.ProductKindStanding, ProductID: uuid.New(), Quantity: 1},
		},
	})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestCheckoutRejectsForeignSellerItem(t *testing.T) {
	f := newServiceFixture(t)
	productID := uuid.New()
	f.catalog.standing[productID] = &models.Product{
		ID: productID, SellerID: uuid.New(), Name: "concha",
		Price: decimal.RequireFromString("2.00"), IsAvailable: true,
	}

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer},
		SellerID:     uuid.New(),
		DeliveryType: enums.DeliveryTypePickup,
		Items: []CheckoutItem{
			{Kind: enums.ProductKindStanding, ProductID: productID, Quantity: 1},
		},
	})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestCheckoutDailySnapshotsPrice(t *testing.T) {
	f := newServiceFixture(t)
	sellerID := uuid.New()
	dailyID := uuid.New()
	f.catalog.daily[dailyID] = &models.DailyProduct{
		ID: dailyID, SellerID: sellerID, Name: "tamales",
		Price: decimal.RequireFromString("2.50"), StockQuantity: 8,
		IsAvailable: true, ExpiresAt: time.Now().Add(6 * time.Hour),
	}

	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Buyer:        Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer},
		SellerID:     sellerID,
		DeliveryType: enums.DeliveryTypeDineIn,
		Items: []CheckoutItem{
			{Kind: enums.ProductKindDaily, ProductID: dailyID, Quantity: 4},
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Items[0].DailyProductID)
	assert.Equal(t, dailyID, *order.Items[0].DailyProductID)
	assert.Nil(t, order.Items[0].ProductID)
	assert.Equal(t, "10.00", order.Items[0].Total.StringFixed(2))
}

func TestAcceptReconcilesAndEmits(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	f.inventory.changes = []inventory.StockChange{
		{Kind: enums.ProductKindStanding, ProductID: uuid.New(), SellerID: order.SellerID, Name: "rye", Delta: -2, Remaining: 3},
	}
	seller := Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller}

	accepted, err := f.svc.Accept(context.Background(), order.ID, seller)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, 1, f.inventory.reconcileCalls)
	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderAccepted,
		enums.EventStockDecremented,
	}, f.outbox.eventTypes())
}

func TestAcceptEmitsDepletionAtZero(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	f.inventory.changes = []inventory.StockChange{
		{Kind: enums.ProductKindStanding, ProductID: uuid.New(), SellerID: order.SellerID, Name: "rye", Delta: -2, Remaining: 0},
	}

	_, err := f.svc.Accept(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	require.NoError(t, err)

	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderAccepted,
		enums.EventStockDecremented,
		enums.EventStockDepleted,
	}, f.outbox.eventTypes())
}

func TestAcceptIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusAccepted

	accepted, err := f.svc.Accept(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusAccepted, accepted.Status)
	assert.Zero(t, f.inventory.reconcileCalls)
	assert.Empty(t, f.outbox.events)
}

func TestAcceptRejectsForeignSeller(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)

	_, err := f.svc.Accept(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleSeller})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
	assert.Zero(t, f.inventory.reconcileCalls)
}

func TestAcceptRejectsCancelledOrder(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusCancelled

	_, err := f.svc.Accept(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestAcceptPropagatesStockFailure(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	f.inventory.reconcileErr = pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for product")

	_, err := f.svc.Accept(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	assert.Equal(t, pkgerrors.CodeInsufficientStock, errCode(t, err))
	assert.Empty(t, f.outbox.events)
}

func TestCancelPendingSkipsRestock(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)

	cancelled, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: order.BuyerID, Role: enums.MemberRoleBuyer})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Zero(t, f.inventory.releaseCalls)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderCancelled}, f.outbox.eventTypes())
}

func TestCancelAcceptedRestoresStock(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusAccepted
	f.inventory.changes = []inventory.StockChange{
		{Kind: enums.ProductKindStanding, ProductID: uuid.New(), SellerID: order.SellerID, Name: "rye", Delta: 2, Remaining: 5},
	}

	cancelled, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: order.BuyerID, Role: enums.MemberRoleBuyer})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, f.inventory.releaseCalls)
	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderCancelled,
		enums.EventStockRestored,
	}, f.outbox.eventTypes())
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusCancelled

	cancelled, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: order.BuyerID, Role: enums.MemberRoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Empty(t, f.outbox.events)
}

func TestCancelDeliveredRejected(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusDelivered

	_, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: order.BuyerID, Role: enums.MemberRoleBuyer})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestCancelByStrangerRejected(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)

	_, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestCancelByAdminAllowed(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)

	cancelled, err := f.svc.Cancel(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestClaimOrderBindsDriver(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusReady
	driver := Actor{UserID: uuid.New(), Role: enums.MemberRoleDriver}

	claimed, err := f.svc.ClaimOrder(context.Background(), order.ID, driver)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusAssigned, claimed.Status)
	require.NotNil(t, claimed.DriverID)
	assert.Equal(t, driver.UserID, *claimed.DriverID)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderStateChanged}, f.outbox.eventTypes())
}

func TestClaimOrderRejectsNonDriver(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusReady

	_, err := f.svc.ClaimOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestClaimOrderRejectsPickupOrder(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusReady

	_, err := f.svc.ClaimOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleDriver})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestClaimOrderLosesToExistingDriver(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusReady
	other := uuid.New()
	order.DriverID = &other

	_, err := f.svc.ClaimOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleDriver})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestMarkReadyFromAccepted(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusAccepted

	ready, err := f.svc.MarkReady(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReady, ready.Status)
	assert.NotNil(t, ready.ReadyAt)
}

func TestDeliveredByDriverFromInTransit(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusInTransit
	driverID := uuid.New()
	order.DriverID = &driverID

	delivered, err := f.svc.MarkDelivered(context.Background(), order.ID, Actor{UserID: driverID, Role: enums.MemberRoleDriver})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestDeliveredBySellerForPickup(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)
	order.Status = enums.OrderStatusReady

	delivered, err := f.svc.MarkDelivered(context.Background(), order.ID, Actor{UserID: order.SellerID, Role: enums.MemberRoleSeller})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
}

func TestDeliveredRejectsShortcutFromReady(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypeDelivery)
	order.Status = enums.OrderStatusReady
	driverID := uuid.New()
	order.DriverID = &driverID

	_, err := f.svc.MarkDelivered(context.Background(), order.ID, Actor{UserID: driverID, Role: enums.MemberRoleDriver})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestListBuyerOrdersEncodesNextCursor(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.rows = []models.Order{{ID: uuid.New()}}
	f.repo.next = &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}

	page, err := f.svc.ListBuyerOrders(context.Background(), Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer}, pagination.Params{Limit: 1})
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	require.NotEmpty(t, page.Cursor)
	parsed, err := pagination.ParseCursor(page.Cursor)
	require.NoError(t, err)
	assert.Equal(t, f.repo.next.ID, parsed.ID)
}

func TestListBuyerOrdersLastPageHasNoCursor(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.rows = []models.Order{{ID: uuid.New()}}

	page, err := f.svc.ListBuyerOrders(context.Background(), Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Cursor)
}

func TestListBuyerOrdersRejectsBadCursor(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ListBuyerOrders(context.Background(), Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer}, pagination.Params{Cursor: "not-base64!!"})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestDriverQueueRequiresDriverRole(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.DriverQueue(context.Background(), Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestGetOrderHidesFromStrangers(t *testing.T) {
	f := newServiceFixture(t)
	order := pendingOrder(f, enums.DeliveryTypePickup)

	_, err := f.svc.GetOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))

	got, err := f.svc.GetOrder(context.Background(), order.ID, Actor{UserID: order.BuyerID, Role: enums.MemberRoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}
