package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type fakeCatalog struct {
	products map[uint]*models.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, repo.ErrNotFound)
	}
	return p, nil
}

func newTestService() *Service {
	return &Service{
		KV: kvstore.NewMemoryStore(),
		Catalog: &fakeCatalog{products: map[uint]*models.Product{
			1: {ID: 1, Name: "Keyboard", Price: 10.00, Image: "kb.png"},
			2: {ID: 2, Name: "Mouse", Price: 25.50, Image: "m.png"},
		}},
	}
}

func TestDeriveEmptyCart(t *testing.T) {
	totals := Derive(nil)
	require.Zero(t, totals.TotalItems)
	require.Zero(t, totals.Subtotal)
	require.Zero(t, totals.ShippingFee)
	require.Zero(t, totals.Tax)
	require.Zero(t, totals.Total)
}

func TestDeriveTotals(t *testing.T) {
	lines := []Line{{ProductID: 1, UnitPrice: 10.00, Quantity: 2}}
	totals := Derive(lines)

	require.Equal(t, 2, totals.TotalItems)
	require.InDelta(t, 20.00, totals.Subtotal, 1e-9)
	require.InDelta(t, 5.99, totals.ShippingFee, 1e-9)
	require.InDelta(t, 1.60, totals.Tax, 1e-9)
	require.InDelta(t, 27.59, totals.Total, 1e-9)
}

func TestDeriveTotalIsSumOfParts(t *testing.T) {
	lines := []Line{
		{ProductID: 1, UnitPrice: 10.00, Quantity: 3},
		{ProductID: 2, UnitPrice: 25.50, Quantity: 1},
	}
	totals := Derive(lines)
	require.InDelta(t, totals.Subtotal+totals.ShippingFee+totals.Tax, totals.Total, 1e-9)
	require.Equal(t, 4, totals.TotalItems)
}

func TestDeriveIsPure(t *testing.T) {
	lines := []Line{{ProductID: 2, UnitPrice: 25.50, Quantity: 2}}
	require.Equal(t, Derive(lines), Derive(lines))
}

func TestAddNewProduct(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	lines, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, uint(1), lines[0].ProductID)
	require.Equal(t, "Keyboard", lines[0].Name)
	require.InDelta(t, 10.00, lines[0].UnitPrice, 1e-9)
	require.Equal(t, uint(1), lines[0].Quantity)
}

func TestAddSameProductIncrements(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)
	lines, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	require.Equal(t, uint(2), lines[0].Quantity)
}

func TestAddUnknownProduct(t *testing.T) {
	s := newTestService()
	_, err := s.Add(context.Background(), 7, 99)
	require.ErrorIs(t, err, repo.ErrNotFound)

	lines, err := s.Load(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestChangeQuantityClampsAtOne(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)

	lines, err := s.ChangeQuantity(ctx, 7, 1, -5)
	require.NoError(t, err)
	require.Equal(t, uint(1), lines[0].Quantity)

	lines, err = s.ChangeQuantity(ctx, 7, 1, 3)
	require.NoError(t, err)
	require.Equal(t, uint(4), lines[0].Quantity)
}

func TestChangeQuantityAbsentProduct(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)

	lines, err := s.ChangeQuantity(ctx, 7, 42, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, uint(1), lines[0].Quantity)
}

func TestRemove(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)
	_, err = s.Add(ctx, 7, 2)
	require.NoError(t, err)

	lines, err := s.Remove(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, uint(2), lines[0].ProductID)

	// removing something not in the cart changes nothing
	lines, err = s.Remove(ctx, 7, 99)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestClear(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, 7))

	lines, err := s.Load(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, lines)

	totals, err := s.Totals(ctx, 7)
	require.NoError(t, err)
	require.Zero(t, totals.Total)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)

	lines, err := s.Load(ctx, 8)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, 7, 1)
	require.NoError(t, err)
	_, err = s.Add(ctx, 7, 2)
	require.NoError(t, err)
	want, err := s.ChangeQuantity(ctx, 7, 2, 4)
	require.NoError(t, err)

	got, err := s.Load(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.KV.Set(ctx, "cart:7", "{not json"))
	lines, err := s.Load(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, lines)
}
