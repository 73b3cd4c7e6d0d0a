package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service/cart"
)

type stubCatalog struct{}

func (stubCatalog) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	if id != 1 {
		return nil, fmt.Errorf("product %d not found", id)
	}
	return &models.Product{ID: 1, Name: "Keyboard", Price: 10.00}, nil
}

func newTestCheckout(t *testing.T) (*Service, *cart.Service) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	c := &cart.Service{KV: kv, Catalog: stubCatalog{}}
	s := NewService(kv, c)
	s.now = func() time.Time { return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC) }
	return s, c
}

func validShipping() ShippingForm {
	return ShippingForm{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "555-0100",
		Address:  "1 Main St",
		City:     "Springfield",
		State:    "IL",
		ZipCode:  "62701",
		Country:  "USA",
	}
}

func validPayment() PaymentForm {
	return PaymentForm{
		CardholderName: "Jane Doe",
		CardNumber:     "4111 1111 1111 1234",
		ExpiryMonth:    12,
		ExpiryYear:     28,
		CVV:            "123",
	}
}

func TestEnterWithEmptyCartRedirectsToCart(t *testing.T) {
	s, _ := newTestCheckout(t)

	for _, step := range []Step{StepShipping, StepPayment, StepConfirmation} {
		_, err := s.Enter(context.Background(), 7, step)
		var redir *RedirectError
		require.ErrorAs(t, err, &redir, "step %s", step)
		require.Equal(t, StepCart, redir.To)
	}

	// the cart step itself is always reachable
	st, err := s.Enter(context.Background(), 7, StepCart)
	require.NoError(t, err)
	require.Equal(t, StepCart, st.Step)
}

func TestEnterPaymentWithoutShippingRedirects(t *testing.T) {
	s, c := newTestCheckout(t)
	ctx := context.Background()
	_, err := c.Add(ctx, 7, 1)
	require.NoError(t, err)

	_, err = s.Enter(ctx, 7, StepPayment)
	var redir *RedirectError
	require.ErrorAs(t, err, &redir)
	require.Equal(t, StepShipping, redir.To)
}

func TestEnterConfirmationWithoutPaymentRedirects(t *testing.T) {
	s, c := newTestCheckout(t)
	ctx := context.Background()
	_, err := c.Add(ctx, 7, 1)
	require.NoError(t, err)

	_, _, err = s.SubmitShipping(ctx, 7, validShipping())
	require.NoError(t, err)

	_, err = s.Enter(ctx, 7, StepConfirmation)
	var redir *RedirectError
	require.ErrorAs(t, err, &redir)
	require.Equal(t, StepPayment, redir.To)
}

func TestFullFlow(t *testing.T) {
	s, c := newTestCheckout(t)
	ctx := context.Background()
	_, err := c.Add(ctx, 7, 1)
	require.NoError(t, err)

	st, fieldErrs, err := s.SubmitShipping(ctx, 7, validShipping())
	require.NoError(t, err)
	require.Empty(t, fieldErrs)
	require.Equal(t, StepPayment, st.Step)
	require.NotNil(t, st.Shipping)

	st, fieldErrs, err = s.SubmitPayment(ctx, 7, validPayment())
	require.NoError(t, err)
	require.Empty(t, fieldErrs)
	require.Equal(t, StepConfirmation, st.Step)

	// only the masked remnants survive
	require.NotNil(t, st.Payment)
	require.Equal(t, "1234", st.Payment.CardLast4)
	require.Equal(t, "Visa", st.Payment.CardType)

	st, err = s.Enter(ctx, 7, StepConfirmation)
	require.NoError(t, err)
	require.Equal(t, StepConfirmation, st.Step)
}

func TestSubmitShippingValidationFailureChangesNothing(t *testing.T) {
	s, c := newTestCheckout(t)
	ctx := context.Background()
	_, err := c.Add(ctx, 7, 1)
	require.NoError(t, err)

	form := validShipping()
	form.Email = "not-an-email"
	_, fieldErrs, err := s.SubmitShipping(ctx, 7, form)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "Email is invalid", fieldErrs["email"])

	st, err := s.State(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, StepCart, st.Step)
	require.Nil(t, st.Shipping)
}

func TestResetDropsState(t *testing.T) {
	s, c := newTestCheckout(t)
	ctx := context.Background()
	_, err := c.Add(ctx, 7, 1)
	require.NoError(t, err)

	_, _, err = s.SubmitShipping(ctx, 7, validShipping())
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, 7))

	st, err := s.State(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, StepCart, st.Step)
	require.Nil(t, st.Shipping)
}

func TestStateCorruptSnapshot(t *testing.T) {
	s, _ := newTestCheckout(t)
	ctx := context.Background()

	require.NoError(t, s.KV.Set(ctx, "checkout:7", "%%%"))
	st, err := s.State(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, StepCart, st.Step)
}
