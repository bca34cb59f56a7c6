package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/metrics"
)

// StockChange describes one product quantity taken or returned during
// reconciliation. The order service turns these into stock events.
type StockChange struct {
	Kind      enums.ProductKind
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Name      string
	Delta     int
	Remaining int
}

// Service reconciles order line items against on-hand stock. All methods
// expect to run inside the caller's transaction so a failed line rolls back
// every earlier decrement.
type Service interface {
	Reconcile(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]StockChange, error)
	Release(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]StockChange, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService builds the reconciliation service.
func NewService(repo Repository, logg *logger.Logger, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	return &service{
		repo:    repo,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Reconcile decrements stock for every line item or fails the whole batch.
// Daily items whose stored reference no longer resolves fall back to the
// newest unexpired listing with the same name; a successful fallback rewrites
// the line item reference.
func (s *service) Reconcile(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]StockChange, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	started := s.now()
	repo := s.repo.WithTx(tx)

	changes := make([]StockChange, 0, len(items))
	for _, item := range items {
		var (
			change *StockChange
			err    error
		)
		switch item.ProductKind {
		case enums.ProductKindDaily:
			change, err = s.reconcileDaily(ctx, repo, item)
		default:
			change, err = s.reconcileStanding(ctx, repo, item)
		}
		if err != nil {
			s.metrics.IncReconcileFailure(string(pkgerrors.CodeOf(err)))
			return nil, err
		}
		if change.Remaining == 0 {
			s.metrics.IncStockDepleted()
		}
		changes = append(changes, *change)
	}

	s.metrics.ObserveReconcile(s.now().Sub(started))
	return changes, nil
}

func (s *service) reconcileStanding(ctx context.Context, repo Repository, item models.OrderLineItem) (*StockChange, error) {
	if item.ProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item missing product reference").
			WithDetails(map[string]any{"line_item_id": item.ID})
	}

	result, err := repo.DecrementStanding(ctx, *item.ProductID, item.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement product stock")
	}
	if result != nil {
		return &StockChange{
			Kind:      enums.ProductKindStanding,
			ProductID: *item.ProductID,
			SellerID:  result.SellerID,
			Name:      result.Name,
			Delta:     -item.Quantity,
			Remaining: result.Remaining,
		}, nil
	}

	return nil, s.classifyStandingFailure(ctx, repo, item)
}

func (s *service) classifyStandingFailure(ctx context.Context, repo Repository, item models.OrderLineItem) error {
	product, err := repo.FindStanding(ctx, *item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists").
				WithDetails(map[string]any{"line_item_id": item.ID, "product_id": item.ProductID, "name": item.Name})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for product").
		WithDetails(map[string]any{
			"line_item_id": item.ID,
			"product_id":   product.ID,
			"name":         product.Name,
			"requested":    item.Quantity,
			"available":    product.StockQuantity,
		})
}

func (s *service) reconcileDaily(ctx context.Context, repo Repository, item models.OrderLineItem) (*StockChange, error) {
	now := s.now()

	if item.DailyProductID != nil {
		result, err := repo.DecrementDaily(ctx, *item.DailyProductID, item.Quantity, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement daily stock")
		}
		if result != nil {
			return &StockChange{
				Kind:      enums.ProductKindDaily,
				ProductID: *item.DailyProductID,
				SellerID:  result.SellerID,
				Name:      result.Name,
				Delta:     -item.Quantity,
				Remaining: result.Remaining,
			}, nil
		}

		// The guard rejected the write. A referenced listing that is still
		// sellable was rejected purely for quantity; resolving by name here
		// would fulfil the line from a different listing, so the shortfall
		// is reported instead.
		referenced, err := repo.FindDaily(ctx, *item.DailyProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily product")
		}
		if err == nil && referenced.IsSellable(now) {
			return nil, insufficientDailyStock(item, referenced.ID, referenced.Name, referenced.StockQuantity)
		}
	}

	// The stored reference is gone or no longer sellable. Daily listings get
	// recreated with fresh ids, so retry against the newest sellable row
	// carrying the exact snapshot name.
	candidate, err := repo.FindSellableDailyByName(ctx, item.Name, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "daily product no longer available").
				WithDetails(map[string]any{"line_item_id": item.ID, "name": item.Name})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve daily product by name")
	}

	result, err := repo.DecrementDaily(ctx, candidate.ID, item.Quantity, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement daily stock")
	}
	if result == nil {
		return nil, insufficientDailyStock(item, candidate.ID, candidate.Name, candidate.StockQuantity)
	}

	if err := repo.RebindLineItemDaily(ctx, item.ID, candidate.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rebind line item daily reference")
	}
	if s.logg != nil {
		fields := map[string]any{
			"line_item_id": item.ID.String(),
			"resolved_id":  candidate.ID.String(),
			"name":         item.Name,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "daily product reference healed by name")
	}

	return &StockChange{
		Kind:      enums.ProductKindDaily,
		ProductID: candidate.ID,
		SellerID:  result.SellerID,
		Name:      result.Name,
		Delta:     -item.Quantity,
		Remaining: result.Remaining,
	}, nil
}

func insufficientDailyStock(item models.OrderLineItem, productID uuid.UUID, name string, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for daily product").
		WithDetails(map[string]any{
			"line_item_id": item.ID,
			"product_id":   productID,
			"name":         name,
			"requested":    item.Quantity,
			"available":    available,
		})
}

// Release returns the decremented quantities when an accepted-or-later order
// is cancelled.
func (s *service) Release(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) ([]StockChange, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)

	changes := make([]StockChange, 0, len(items))
	for _, item := range items {
		switch item.ProductKind {
		case enums.ProductKindDaily:
			if item.DailyProductID == nil {
				continue
			}
			if err := repo.IncrementDaily(ctx, *item.DailyProductID, item.Quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore daily stock")
			}
			product, err := repo.FindDaily(ctx, *item.DailyProductID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily product")
			}
			changes = append(changes, StockChange{
				Kind:      enums.ProductKindDaily,
				ProductID: product.ID,
				SellerID:  product.SellerID,
				Name:      product.Name,
				Delta:     item.Quantity,
				Remaining: product.StockQuantity,
			})
		default:
			if item.ProductID == nil {
				continue
			}
			if err := repo.IncrementStanding(ctx, *item.ProductID, item.Quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore product stock")
			}
			product, err := repo.FindStanding(ctx, *item.ProductID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			changes = append(changes, StockChange{
				Kind:      enums.ProductKindStanding,
				ProductID: product.ID,
				SellerID:  product.SellerID,
				Name:      product.Name,
				Delta:     item.Quantity,
				Remaining: product.StockQuantity,
			})
		}
	}
	return changes, nil
}
