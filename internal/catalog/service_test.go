package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/outbox"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

type stubCatalogRepo struct {
	products map[uuid.UUID]*models.Product
	daily    map[uuid.UUID]*models.DailyProduct
	stockSet map[uuid.UUID]int
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		products: make(map[uuid.UUID]*models.Product),
		daily:    make(map[uuid.UUID]*models.DailyProduct),
		stockSet: make(map[uuid.UUID]int),
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	s.products[product.ID] = product
	return product, nil
}

func (s *stubCatalogRepo) SaveProduct(ctx context.Context, product *models.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	product, ok := s.products[id]
	if !ok || product.SellerID != sellerID {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *stubCatalogRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubCatalogRepo) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	var rows []models.Product
	for _, product := range s.products {
		if product.SellerID == sellerID {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

func (s *stubCatalogRepo) ListAvailableProducts(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	var rows []models.Product
	for _, product := range s.products {
		if product.IsAvailable && product.StockQuantity > 0 {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

func (s *stubCatalogRepo) SetProductStock(ctx context.Context, id, sellerID uuid.UUID, qty int) (bool, error) {
	product, ok := s.products[id]
	if !ok || product.SellerID != sellerID {
		return false, nil
	}
	product.StockQuantity = qty
	product.IsAvailable = qty > 0
	s.stockSet[id] = qty
	return true, nil
}

func (s *stubCatalogRepo) CreateDailyProduct(ctx context.Context, product *models.DailyProduct) (*models.DailyProduct, error) {
	s.daily[product.ID] = product
	return product, nil
}

func (s *stubCatalogRepo) FindDailyProduct(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error) {
	product, ok := s.daily[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubCatalogRepo) ListDailyProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.DailyProduct, error) {
	var rows []models.DailyProduct
	for _, product := range s.daily {
		if product.SellerID == sellerID {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

func (s *stubCatalogRepo) ListSellableDailyProducts(ctx context.Context, now time.Time, params pagination.Params) ([]models.DailyProduct, error) {
	var rows []models.DailyProduct
	for _, product := range s.daily {
		if product.IsSellable(now) {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

func (s *stubCatalogRepo) CloseDailyProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	product, ok := s.daily[id]
	if !ok || product.SellerID != sellerID {
		return false, nil
	}
	product.IsAvailable = false
	return true, nil
}

type stubCatalogTx struct{}

func (stubCatalogTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubCatalogOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubCatalogOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type catalogFixture struct {
	svc    Service
	repo   *stubCatalogRepo
	outbox *stubCatalogOutbox
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	repo := newStubCatalogRepo()
	ob := &stubCatalogOutbox{}
	svc, err := NewService(repo, stubCatalogTx{}, ob, nil, 12*time.Hour)
	require.NoError(t, err)
	return &catalogFixture{svc: svc, repo: repo, outbox: ob}
}

func catalogErrCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	return typed.Code()
}

func TestCreateProductFlagsAvailability(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()

	stocked, err := f.svc.CreateProduct(context.Background(), sellerID, ProductInput{
		Name:          "sourdough",
		Price:         decimal.RequireFromString("4.25"),
		StockQuantity: 10,
	})
	require.NoError(t, err)
	assert.True(t, stocked.IsAvailable)

	empty, err := f.svc.CreateProduct(context.Background(), sellerID, ProductInput{
		Name:  "rye",
		Price: decimal.RequireFromString("3.00"),
	})
	require.NoError(t, err)
	assert.False(t, empty.IsAvailable)
}

func TestCreateProductValidation(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), uuid.New(), ProductInput{
		Price: decimal.RequireFromString("1.00"),
	})
	assert.Equal(t, pkgerrors.CodeValidation, catalogErrCode(t, err))

	_, err = f.svc.CreateProduct(context.Background(), uuid.New(), ProductInput{
		Name:  "concha",
		Price: decimal.RequireFromString("-1.00"),
	})
	assert.Equal(t, pkgerrors.CodeValidation, catalogErrCode(t, err))

	_, err = f.svc.CreateProduct(context.Background(), uuid.Nil, ProductInput{
		Name:  "concha",
		Price: decimal.RequireFromString("1.00"),
	})
	assert.Equal(t, pkgerrors.CodeUnauthorized, catalogErrCode(t, err))
}

func TestUpdateProductAppliesPatch(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()
	product, err := f.svc.CreateProduct(context.Background(), sellerID, ProductInput{
		Name:          "sourdough",
		Price:         decimal.RequireFromString("4.25"),
		StockQuantity: 10,
	})
	require.NoError(t, err)

	newName := "country loaf"
	newPrice := decimal.RequireFromString("5.00")
	unavailable := false
	updated, err := f.svc.UpdateProduct(context.Background(), product.ID, sellerID, ProductPatch{
		Name:        &newName,
		Price:       &newPrice,
		IsAvailable: &unavailable,
	})
	require.NoError(t, err)

	assert.Equal(t, "country loaf", updated.Name)
	assert.Equal(t, "5.00", updated.Price.StringFixed(2))
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, 10, updated.StockQuantity)
}

func TestUpdateProductRejectsForeignSeller(t *testing.T) {
	f := newCatalogFixture(t)
	product, err := f.svc.CreateProduct(context.Background(), uuid.New(), ProductInput{
		Name:  "sourdough",
		Price: decimal.RequireFromString("4.25"),
	})
	require.NoError(t, err)

	name := "hijacked"
	_, err = f.svc.UpdateProduct(context.Background(), product.ID, uuid.New(), ProductPatch{Name: &name})
	assert.Equal(t, pkgerrors.CodeForbidden, catalogErrCode(t, err))
}

func TestSetProductStock(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()
	product, err := f.svc.CreateProduct(context.Background(), sellerID, ProductInput{
		Name:  "sourdough",
		Price: decimal.RequireFromString("4.25"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetProductStock(context.Background(), product.ID, sellerID, 7))
	assert.Equal(t, 7, f.repo.stockSet[product.ID])

	err = f.svc.SetProductStock(context.Background(), product.ID, sellerID, -1)
	assert.Equal(t, pkgerrors.CodeValidation, catalogErrCode(t, err))

	err = f.svc.SetProductStock(context.Background(), uuid.New(), sellerID, 3)
	assert.Equal(t, pkgerrors.CodeNotFound, catalogErrCode(t, err))
}

func TestDeleteProduct(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()
	product, err := f.svc.CreateProduct(context.Background(), sellerID, ProductInput{
		Name:  "sourdough",
		Price: decimal.RequireFromString("4.25"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(context.Background(), product.ID, sellerID))

	err = f.svc.DeleteProduct(context.Background(), product.ID, sellerID)
	assert.Equal(t, pkgerrors.CodeNotFound, catalogErrCode(t, err))
}

func TestCreateDailyProductDefaultsExpiry(t *testing.T) {
	f := newCatalogFixture(t)
	before := time.Now()

	product, err := f.svc.CreateDailyProduct(context.Background(), uuid.New(), DailyProductInput{
		Name:          "tamales",
		Price:         decimal.RequireFromString("2.50"),
		StockQuantity: 8,
	})
	require.NoError(t, err)

	assert.True(t, product.ExpiresAt.After(before.Add(11*time.Hour)))
	assert.True(t, product.ExpiresAt.Before(before.Add(13*time.Hour)))
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventDailyListingPosted, f.outbox.events[0].EventType)
}

func TestCreateDailyProductRejectsPastExpiry(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.CreateDailyProduct(context.Background(), uuid.New(), DailyProductInput{
		Name:          "tamales",
		Price:         decimal.RequireFromString("2.50"),
		StockQuantity: 8,
		ExpiresAt:     time.Now().Add(-time.Hour),
	})
	assert.Equal(t, pkgerrors.CodeValidation, catalogErrCode(t, err))
}

func TestCloseDailyProduct(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()
	product, err := f.svc.CreateDailyProduct(context.Background(), sellerID, DailyProductInput{
		Name:          "tamales",
		Price:         decimal.RequireFromString("2.50"),
		StockQuantity: 8,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseDailyProduct(context.Background(), product.ID, sellerID))
	assert.False(t, f.repo.daily[product.ID].IsAvailable)
	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, enums.EventDailyListingClosed, f.outbox.events[1].EventType)

	err = f.svc.CloseDailyProduct(context.Background(), uuid.New(), sellerID)
	assert.Equal(t, pkgerrors.CodeNotFound, catalogErrCode(t, err))
}

func TestListSellableDailyProductsFiltersExpired(t *testing.T) {
	f := newCatalogFixture(t)
	sellerID := uuid.New()

	live, err := f.svc.CreateDailyProduct(context.Background(), sellerID, DailyProductInput{
		Name:          "tamales",
		Price:         decimal.RequireFromString("2.50"),
		StockQuantity: 8,
		ExpiresAt:     time.Now().Add(4 * time.Hour),
	})
	require.NoError(t, err)

	expired, err := f.svc.CreateDailyProduct(context.Background(), sellerID, DailyProductInput{
		Name:          "pozole",
		Price:         decimal.RequireFromString("3.00"),
		StockQuantity: 5,
		ExpiresAt:     time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	f.repo.daily[expired.ID].ExpiresAt = time.Now().Add(-time.Minute)

	rows, err := f.svc.ListSellableDailyProducts(context.Background(), pagination.Params{Limit: 20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, live.ID, rows[0].ID)
}

func TestResolveStandingNotFound(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.svc.ResolveStanding(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, catalogErrCode(t, err))

	_, err = f.svc.ResolveDaily(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, catalogErrCode(t, err))
}
