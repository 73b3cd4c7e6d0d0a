package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service/cart"
	"github.com/Skotchmaster/storefront/internal/service/checkout"
	"github.com/Skotchmaster/storefront/internal/service/order"
)

type testEnv struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	cart     *CartHandler
	checkout *CheckoutHandler
	orders   *OrderHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	r := repo.New(gdb)

	kv := kvstore.NewMemoryStore()
	cartSvc := &cart.Service{KV: kv, Catalog: r}
	checkoutSvc := checkout.NewService(kv, cartSvc)
	orderSvc := &order.Service{
		Backend:  order.NewGormBackend(r),
		KV:       kv,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
	}

	require.NoError(t, r.CreateProduct(context.Background(), &models.Product{
		Name: "Keyboard", Price: 10.00, Count: 5,
	}))

	return &testEnv{
		e:        echo.New(),
		repo:     r,
		cart:     &CartHandler{Cart: cartSvc},
		checkout: &CheckoutHandler{Checkout: checkoutSvc, Cart: cartSvc},
		orders:   &OrderHandler{Orders: orderSvc},
	}
}

// doJSON builds an authenticated echo context carrying the payload.
func (env *testEnv) doJSON(method, target string, payload any) (*httptest.ResponseRecorder, echo.Context) {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.Set("userID", uint(7))
	c.Set("role", "user")
	return rec, c
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func (env *testEnv) placeOrder(t *testing.T) order.PlacedOrder {
	t.Helper()

	rec, c := env.doJSON(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 1})
	require.NoError(t, env.cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/checkout/shipping", map[string]any{
		"full_name": "Jane Doe", "email": "Jane@Example.com", "phone": "555-0100",
		"address": "1 Main St", "city": "Springfield", "state": "IL",
		"zip_code": "62701", "country": "USA",
	})
	require.NoError(t, env.checkout.SubmitShipping(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/checkout/payment", map[string]any{
		"cardholder_name": "Jane Doe", "card_number": "4111 1111 1111 1234",
		"expiry_month": 12, "expiry_year": 99, "cvv": "123",
	})
	require.NoError(t, env.checkout.SubmitPayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/checkout/confirm", nil)
	require.NoError(t, env.orders.Confirm(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed order.PlacedOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	return placed
}

func TestCartEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/cart", nil)
	require.NoError(t, env.cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items  []cart.Line `json:"items"`
		Totals cart.Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
	require.Zero(t, resp.Totals.Total)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 1})
	require.NoError(t, env.cart.AddToCart(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.InDelta(t, 10.00, resp.Totals.Subtotal, 1e-9)

	_, c = env.doJSON(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 99})
	err := env.cart.AddToCart(c)
	require.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func TestChangeQuantityEndpoint(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSON(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 1})
	require.NoError(t, env.cart.AddToCart(c))

	rec, c := env.doJSON(http.MethodPatch, "/api/v1/cart/1", map[string]any{"delta": -3})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.cart.ChangeQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []cart.Line `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint(1), resp.Items[0].Quantity)
}

func TestCheckoutGuardRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/checkout/payment", nil)
	c.SetParamNames("step")
	c.SetParamValues("payment")
	require.NoError(t, env.checkout.EnterStep(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "cart", resp.Redirect)

	_, c = env.doJSON(http.MethodGet, "/api/v1/checkout/bogus", nil)
	c.SetParamNames("step")
	c.SetParamValues("bogus")
	err := env.checkout.EnterStep(c)
	require.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func TestSubmitShippingValidationResponse(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSON(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 1})
	require.NoError(t, env.cart.AddToCart(c))

	rec, c := env.doJSON(http.MethodPost, "/api/v1/checkout/shipping", map[string]any{
		"full_name": "Jane Doe",
	})
	require.NoError(t, env.checkout.SubmitShipping(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Errors, "email")
	require.NotContains(t, resp.Errors, "full_name")
}

func TestConfirmEmptyCheckout(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSON(http.MethodPost, "/api/v1/checkout/confirm", nil)
	err := env.orders.Confirm(c)
	require.Equal(t, http.StatusConflict, httpStatus(t, err))
}

func TestConfirmAndTrack(t *testing.T) {
	env := newTestEnv(t)
	placed := env.placeOrder(t)
	require.Equal(t, models.StatusProcessing, placed.Order.Status)
	require.InDelta(t, 16.79, placed.Order.Total, 1e-9)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/track", map[string]any{
		"order_id": placed.Order.ID.String(),
		"email":    "jane@example.com",
	})
	require.NoError(t, env.orders.Track(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var tracked order.TrackedOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracked))
	require.Equal(t, 25, tracked.Progress)
	require.Len(t, tracked.Timeline, 5)

	_, c = env.doJSON(http.MethodPost, "/api/v1/orders/track", map[string]any{
		"order_id": placed.Order.ID.String(),
		"email":    "mallory@example.com",
	})
	err := env.orders.Track(c)
	require.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func TestOrderHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	placed := env.placeOrder(t)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/orders", nil)
	require.NoError(t, env.orders.History(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []order.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, placed.Order.ID.String(), entries[0].OrderID)
}
