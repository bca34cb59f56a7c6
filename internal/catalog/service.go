package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/outbox"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ProductInput carries the writable fields of a standing product.
type ProductInput struct {
	Name          string
	Description   *string
	Category      *string
	Tags          []string
	Price         decimal.Decimal
	StockQuantity int
}

// DailyProductInput carries the writable fields of a daily listing. A zero
// ExpiresAt falls back to the configured TTL.
type DailyProductInput struct {
	Name          string
	Description   *string
	Tags          []string
	Price         decimal.Decimal
	StockQuantity int
	ExpiresAt     time.Time
}

// ProductPatch updates a subset of product fields.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Tags        []string
	Price       *decimal.Decimal
	IsAvailable *bool
}

// Service exposes catalog management and the lookups the order flow needs.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, patch ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error
	SetProductStock(ctx context.Context, id, sellerID uuid.UUID, qty int) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListSellerProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	ListAvailableProducts(ctx context.Context, params pagination.Params) ([]models.Product, error)

	CreateDailyProduct(ctx context.Context, sellerID uuid.UUID, input DailyProductInput) (*models.DailyProduct, error)
	CloseDailyProduct(ctx context.Context, id, sellerID uuid.UUID) error
	ListSellerDailyProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.DailyProduct, error)
	ListSellableDailyProducts(ctx context.Context, params pagination.Params) ([]models.DailyProduct, error)

	ResolveStanding(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ResolveDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	dailyTTL time.Duration
	now      func() time.Time
}

// NewService builds the catalog service.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, logg *logger.Logger, dailyTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if dailyTTL <= 0 {
		dailyTTL = 24 * time.Hour
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   ob,
		logg:     logg,
		dailyTTL: dailyTTL,
		now:      time.Now,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must not be negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Tags:          pq.StringArray(input.Tags),
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsAvailable:   input.StockQuantity > 0,
	}
	if _, err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, patch ProductPatch) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = patch.Description
	}
	if patch.Category != nil {
		product.Category = patch.Category
	}
	if patch.Tags != nil {
		product.Tags = pq.StringArray(patch.Tags)
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = *patch.Price
	}
	if patch.IsAvailable != nil {
		product.IsAvailable = *patch.IsAvailable
	}

	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, id, sellerID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteProduct(ctx, id, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) SetProductStock(ctx context.Context, id, sellerID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must not be negative")
	}
	ok, err := s.repo.SetProductStock(ctx, id, sellerID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.ResolveStanding(ctx, id)
}

func (s *service) ListSellerProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	rows, err := s.repo.ListProductsBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller products")
	}
	return rows, nil
}

func (s *service) ListAvailableProducts(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	rows, err := s.repo.ListAvailableProducts(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func (s *service) CreateDailyProduct(ctx context.Context, sellerID uuid.UUID, input DailyProductInput) (*models.DailyProduct, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must not be negative")
	}

	now := s.now()
	expiresAt := input.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.dailyTTL)
	}
	if !expiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	product := &models.DailyProduct{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Name:          input.Name,
		Description:   input.Description,
		Tags:          pq.StringArray(input.Tags),
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsAvailable:   input.StockQuantity > 0,
		ExpiresAt:     expiresAt,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateDailyProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create daily product")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDailyListingPosted,
			AggregateType: enums.AggregateDailyProduct,
			AggregateID:   product.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: string(enums.MemberRoleSeller)},
			Data: map[string]any{
				"name":      product.Name,
				"sellerId":  product.SellerID,
				"expiresAt": product.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) CloseDailyProduct(ctx context.Context, id, sellerID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.CloseDailyProduct(ctx, id, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close daily product")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "daily product not found")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDailyListingClosed,
			AggregateType: enums.AggregateDailyProduct,
			AggregateID:   id,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: string(enums.MemberRoleSeller)},
			Data:          map[string]any{"sellerId": sellerID},
		})
	})
}

func (s *service) ListSellerDailyProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.DailyProduct, error) {
	rows, err := s.repo.ListDailyProductsBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller daily products")
	}
	return rows, nil
}

func (s *service) ListSellableDailyProducts(ctx context.Context, params pagination.Params) ([]models.DailyProduct, error) {
	rows, err := s.repo.ListSellableDailyProducts(ctx, s.now(), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list daily products")
	}
	return rows, nil
}

// ResolveStanding returns the product or a typed not-found error.
func (s *service) ResolveStanding(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// ResolveDaily returns the daily listing or a typed not-found error.
func (s *service) ResolveDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error) {
	product, err := s.repo.FindDailyProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "daily product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily product")
	}
	return product, nil
}

func (s *service) ownedProduct(ctx context.Context, id, sellerID uuid.UUID) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	product, err := s.ResolveStanding(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to seller")
	}
	return product, nil
}
