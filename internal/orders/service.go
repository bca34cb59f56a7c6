package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/internal/inventory"
	dbpkg "github.com/trato-app/trato-backend/pkg/db"
	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/metrics"
	"github.com/trato-app/trato-backend/pkg/outbox"
	"github.com/trato-app/trato-backend/pkg/outbox/payloads"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// catalogResolver resolves product references at checkout time.
type catalogResolver interface {
	ResolveStanding(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ResolveDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error)
}

// Actor identifies who is driving a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// CheckoutItem references one product and quantity in a checkout request.
type CheckoutItem struct {
	Kind      enums.ProductKind
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutInput carries everything needed to place an order.
type CheckoutInput struct {
	Buyer        Actor
	SellerID     uuid.UUID
	DeliveryType enums.DeliveryType
	Address      *string
	Notes        *string
	Items        []CheckoutItem
}

// Service drives the order lifecycle.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
	Accept(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkReady(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ClaimOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkPickedUp(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkInTransit(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error)
	ListSellerOrders(ctx context.Context, actor Actor, status *enums.OrderStatus, params pagination.Params) (*OrderPage, error)
	DriverQueue(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error)
}

// OrderPage is one page of a listing plus the cursor for the next page. An
// empty cursor means the last page.
type OrderPage struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	inventory   inventory.Service
	catalog     catalogResolver
	logg        *logger.Logger
	metrics     *metrics.OrderMetrics
	deliveryFee decimal.Decimal
	now         func() time.Time
}

// Options carries the optional knobs for the order service.
type Options struct {
	DeliveryFee decimal.Decimal
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, inv inventory.Service, catalog catalogResolver, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      ob,
		inventory:   inv,
		catalog:     catalog,
		logg:        opts.Logger,
		metrics:     opts.Metrics,
		deliveryFee: opts.DeliveryFee,
		now:         time.Now,
	}, nil
}

// Checkout validates the basket, snapshots names and prices onto line items
// and creates the pending order. Stock is not touched until the seller
// accepts.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.Buyer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !input.DeliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.DeliveryType.RequiresDriver() && (input.Address == nil || *input.Address == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require an address")
	}

	items, subtotal, err := s.buildLineItems(ctx, input)
	if err != nil {
		return nil, err
	}

	fee := decimal.Zero
	if input.DeliveryType.RequiresDriver() {
		fee = s.deliveryFee
	}

	order := &models.Order{
		ID:           uuid.New(),
		BuyerID:      input.Buyer.UserID,
		SellerID:     input.SellerID,
		Status:       enums.OrderStatusPending,
		DeliveryType: input.DeliveryType,
		Address:      input.Address,
		Notes:        input.Notes,
		Subtotal:     subtotal,
		DeliveryFee:  fee,
		Total:        subtotal.Add(fee),
		Items:        items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			// A replayed insert of the same order hits the primary key, which
			// is a duplicate submission rather than a database outage.
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Buyer),
			Data:          statusChangedPayload(order, "", enums.OrderStatusPending),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.OrderStatusPending))
	return order, nil
}

func (s *service) buildLineItems(ctx context.Context, input CheckoutInput) ([]models.OrderLineItem, decimal.Decimal, error) {
	now := s.now()
	subtotal := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(input.Items))

	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.ProductID == uuid.Nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}

		line := models.OrderLineItem{
			ID:          uuid.New(),
			ProductKind: item.Kind,
			Quantity:    item.Quantity,
		}

		switch item.Kind {
		case enums.ProductKindDaily:
			product, err := s.catalog.ResolveDaily(ctx, item.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			if product.SellerID != input.SellerID {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item belongs to another seller")
			}
			if !product.IsSellable(now) {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "daily product no longer available").
					WithDetails(map[string]any{"product_id": product.ID, "name": product.Name})
			}
			id := product.ID
			line.DailyProductID = &id
			line.Name = product.Name
			line.UnitPrice = product.Price
		case enums.ProductKindStanding:
			product, err := s.catalog.ResolveStanding(ctx, item.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			if product.SellerID != input.SellerID {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item belongs to another seller")
			}
			if !product.IsAvailable {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not available").
					WithDetails(map[string]any{"product_id": product.ID, "name": product.Name})
			}
			id := product.ID
			line.ProductID = &id
			line.Name = product.Name
			line.UnitPrice = product.Price
		default:
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid product kind")
		}

		line.Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line.Total)
		items = append(items, line)
	}

	return items, subtotal, nil
}

// Accept moves pending → accepted and reconciles stock inside the same
// transaction. Accepting an already accepted order is a no-op.
func (s *service) Accept(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	var accepted *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := requireSeller(order, actor); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusAccepted {
			accepted = order
			return nil
		}
		if err := validatePredecessor(order.Status, enums.OrderStatusAccepted); err != nil {
			return err
		}

		changes, err := s.inventory.Reconcile(ctx, tx, order.Items)
		if err != nil {
			return err
		}

		now := s.now()
		moved, err := repo.MoveStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAccepted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		order.Status = enums.OrderStatusAccepted
		order.AcceptedAt = &now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAccepted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data:          statusChangedPayload(order, enums.OrderStatusPending, enums.OrderStatusAccepted),
		}); err != nil {
			return err
		}
		if err := s.emitStockEvents(ctx, tx, order.ID, actor, changes, enums.EventStockDecremented); err != nil {
			return err
		}

		accepted = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.OrderStatusAccepted))
	return accepted, nil
}

// MarkReady moves accepted → ready.
func (s *service) MarkReady(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.move(ctx, orderID, enums.OrderStatusReady, actor, requireSeller)
}

// ClaimOrder binds the calling driver to a ready delivery order.
func (s *service) ClaimOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.MemberRoleDriver {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only drivers can claim orders")
	}

	var claimed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.DeliveryType.RequiresDriver() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order does not use a driver")
		}

		now := s.now()
		ok, err := repo.ClaimForDriver(ctx, order.ID, actor.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not claimable")
		}

		order.Status = enums.OrderStatusAssigned
		order.DriverID = &actor.UserID
		order.AssignedAt = &now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data:          statusChangedPayload(order, enums.OrderStatusReady, enums.OrderStatusAssigned),
		}); err != nil {
			return err
		}
		claimed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.OrderStatusAssigned))
	return claimed, nil
}

// MarkPickedUp moves assigned → picked_up, driven by the bound driver.
func (s *service) MarkPickedUp(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.move(ctx, orderID, enums.OrderStatusPickedUp, actor, requireBoundDriver)
}

// MarkInTransit moves picked_up → in_transit.
func (s *service) MarkInTransit(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.move(ctx, orderID, enums.OrderStatusInTransit, actor, requireBoundDriver)
}

// MarkDelivered completes the order. Delivery orders finish from in_transit
// by their driver; pickup and dine-in orders finish from ready by the seller.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	guard := func(order *models.Order, a Actor) error {
		if order.DeliveryType.RequiresDriver() {
			return requireBoundDriver(order, a)
		}
		return requireSeller(order, a)
	}
	return s.move(ctx, orderID, enums.OrderStatusDelivered, actor, guard)
}

// Cancel terminates the order and returns stock held by accepted-or-later
// orders.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	var cancelled *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := requireBuyerOrAdmin(order, actor); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			cancelled = order
			return nil
		}
		if err := validatePredecessor(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		from := order.Status
		var changes []inventory.StockChange
		if from.HoldsStock() {
			changes, err = s.inventory.Release(ctx, tx, order.Items)
			if err != nil {
				return err
			}
		}

		now := s.now()
		moved, err := repo.MoveStatus(ctx, order.ID, from, enums.OrderStatusCancelled, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data:          statusChangedPayload(order, from, enums.OrderStatusCancelled),
		}); err != nil {
			return err
		}
		if err := s.emitStockEvents(ctx, tx, order.ID, actor, changes, enums.EventStockRestored); err != nil {
			return err
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.OrderStatusCancelled))
	return cancelled, nil
}

// move runs the shared conditional-update flow for simple transitions.
func (s *service) move(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, guard func(*models.Order, Actor) error) (*models.Order, error) {
	var moved *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := guard(order, actor); err != nil {
			return err
		}
		if order.Status == target {
			moved = order
			return nil
		}

		from := order.Status
		if target == enums.OrderStatusDelivered {
			expected := deliveredPredecessor(order.DeliveryType)
			if from != expected {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current status").
					WithDetails(map[string]any{"from": from, "to": target})
			}
		} else if err := validatePredecessor(from, target); err != nil {
			return err
		}

		now := s.now()
		ok, err := repo.MoveStatus(ctx, order.ID, from, target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		order.Status = target
		stampTransition(order, target, now)

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data:          statusChangedPayload(order, from, target),
		}); err != nil {
			return err
		}
		moved = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(target))
	return moved, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) emitStockEvents(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor, changes []inventory.StockChange, eventType enums.OutboxEventType) error {
	for _, change := range changes {
		aggregate := enums.AggregateProduct
		if change.Kind == enums.ProductKindDaily {
			aggregate = enums.AggregateDailyProduct
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: aggregate,
			AggregateID:   change.ProductID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.StockChanged{
				ProductKind: change.Kind,
				ProductID:   change.ProductID,
				SellerID:    change.SellerID,
				Name:        change.Name,
				Delta:       change.Delta,
				Remaining:   change.Remaining,
				OrderID:     orderID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		if change.Remaining == 0 && eventType == enums.EventStockDecremented {
			depleted := event
			depleted.EventType = enums.EventStockDepleted
			if err := s.outbox.Emit(ctx, tx, depleted); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetOrder returns an order visible to the actor.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.FindOrdersByBuyer(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return orderPage(rows, next), nil
}

func (s *service) ListSellerOrders(ctx context.Context, actor Actor, status *enums.OrderStatus, params pagination.Params) (*OrderPage, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.FindOrdersBySeller(ctx, actor.UserID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return orderPage(rows, next), nil
}

func (s *service) DriverQueue(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error) {
	if actor.Role != enums.MemberRoleDriver && actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "driver role required")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.FindDriverQueue(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list driver queue")
	}
	return orderPage(rows, next), nil
}

func orderPage(rows []models.Order, next *pagination.Cursor) *OrderPage {
	page := &OrderPage{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func requireSeller(order *models.Order, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if actor.Role != enums.MemberRoleSeller || order.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	return nil
}

func requireBoundDriver(order *models.Order, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.MemberRoleDriver {
		return pkgerrors.New(pkgerrors.CodeForbidden, "driver role required")
	}
	if order.DriverID == nil || *order.DriverID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another driver")
	}
	return nil
}

func requireBuyerOrAdmin(order *models.Order, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if order.BuyerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	return nil
}

func requireParticipant(order *models.Order, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if order.BuyerID == actor.UserID || order.SellerID == actor.UserID {
		return nil
	}
	if order.DriverID != nil && *order.DriverID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to actor")
}

func stampTransition(order *models.Order, target enums.OrderStatus, now time.Time) {
	switch target {
	case enums.OrderStatusAccepted:
		order.AcceptedAt = &now
	case enums.OrderStatusReady:
		order.ReadyAt = &now
	case enums.OrderStatusAssigned:
		order.AssignedAt = &now
	case enums.OrderStatusPickedUp:
		order.PickedUpAt = &now
	case enums.OrderStatusInTransit:
		order.InTransitAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func statusChangedPayload(order *models.Order, from, to enums.OrderStatus) payloads.OrderStatusChanged {
	return payloads.OrderStatusChanged{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		SellerID:     order.SellerID,
		DriverID:     order.DriverID,
		DeliveryType: order.DeliveryType,
		From:         from,
		To:           to,
	}
}
