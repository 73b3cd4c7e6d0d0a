// Package order turns a ready checkout into persisted order records and
// answers tracking lookups against them.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service/cart"
	"github.com/Skotchmaster/storefront/internal/service/checkout"
)

var (
	ErrPrecondition = errors.New("precondition")
	ErrNotFound     = errors.New("not found")
)

// redactedCVV is what gets persisted in place of the verification code.
const redactedCVV = "***"

type Service struct {
	Backend  Backend
	KV       kvstore.Store
	Cart     *cart.Service
	Checkout *checkout.Service
	Producer events.Publisher
	Delivery *DeliveryWorker
}

// PlacedOrder is the composed result handed back after a successful
// ProcessOrder.
type PlacedOrder struct {
	Order    models.Order        `json:"order"`
	Items    []models.OrderItem  `json:"items"`
	Shipping models.ShippingInfo `json:"shipping"`
	Payment  models.PaymentInfo  `json:"payment"`
}

// HistoryEntry is the order-history snapshot appended to the key-value store
// after every successful order.
type HistoryEntry struct {
	OrderID     string               `json:"order_id"`
	Date        string               `json:"date"`
	Items       []cart.Line          `json:"items"`
	Shipping    checkout.ShippingForm `json:"shipping"`
	Payment     checkout.PaymentData `json:"payment"`
	Totals      cart.Totals          `json:"totals"`
}

func historyKey(userID uint) string {
	return fmt.Sprintf("orderhistory:%d", userID)
}

// ProcessOrder checks the preconditions in order (cart, shipping, payment;
// first failure wins and nothing is written), computes the totals once from
// the cart, and persists order, items, shipping and masked payment inside one
// transaction. On success the cart and checkout state are cleared and the
// local history appended.
func (s *Service) ProcessOrder(ctx context.Context, userID uint) (*PlacedOrder, error) {
	lines, err := s.Cart.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("cart is empty: %w", ErrPrecondition)
	}

	st, err := s.Checkout.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Shipping == nil {
		return nil, fmt.Errorf("shipping info is missing: %w", ErrPrecondition)
	}
	if st.Payment == nil {
		return nil, fmt.Errorf("payment info is missing: %w", ErrPrecondition)
	}

	// Totals are computed once here and reused verbatim, they must match what
	// the user saw during checkout.
	totals := cart.Derive(lines)

	ord := models.Order{
		UserID:      userID,
		Status:      models.StatusProcessing,
		Subtotal:    totals.Subtotal,
		ShippingFee: totals.ShippingFee,
		Tax:         totals.Tax,
		Total:       totals.Total,
	}

	placed := &PlacedOrder{}
	err = s.Backend.Atomically(ctx, func(tx Backend) error {
		if err := tx.CreateOrder(ctx, &ord); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			items = append(items, models.OrderItem{
				OrderID:   ord.ID,
				ProductID: l.ProductID,
				Name:      l.Name,
				UnitPrice: l.UnitPrice,
				Quantity:  l.Quantity,
			})
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		shipping := models.ShippingInfo{
			OrderID:  ord.ID,
			FullName: st.Shipping.FullName,
			Email:    strings.ToLower(st.Shipping.Email),
			Phone:    st.Shipping.Phone,
			Address:  st.Shipping.Address,
			City:     st.Shipping.City,
			State:    st.Shipping.State,
			ZipCode:  st.Shipping.ZipCode,
			Country:  st.Shipping.Country,
		}
		if err := tx.CreateShippingInfo(ctx, &shipping); err != nil {
			return fmt.Errorf("create shipping info: %w", err)
		}

		payment := models.PaymentInfo{
			OrderID:        ord.ID,
			CardholderName: st.Payment.CardholderName,
			CardLast4:      st.Payment.CardLast4,
			CardType:       st.Payment.CardType,
			ExpiryMonth:    st.Payment.ExpiryMonth,
			ExpiryYear:     st.Payment.ExpiryYear,
			CVV:            redactedCVV,
		}
		if err := tx.CreatePaymentInfo(ctx, &payment); err != nil {
			return fmt.Errorf("create payment info: %w", err)
		}

		placed.Order = ord
		placed.Items = items
		placed.Shipping = shipping
		placed.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	l := logging.FromContext(ctx)

	if err := s.appendHistory(ctx, userID, lines, st, totals, &ord); err != nil {
		l.Warn("order history append failed", "order_id", ord.ID, "error", err)
	}

	if err := s.Cart.Clear(ctx, userID); err != nil {
		l.Warn("cart clear failed", "order_id", ord.ID, "error", err)
	}
	if err := s.Checkout.Reset(ctx, userID); err != nil {
		l.Warn("checkout reset failed", "order_id", ord.ID, "error", err)
	}

	if s.Producer != nil {
		event := map[string]any{
			"type":     "order_created",
			"order_id": ord.ID,
			"user_id":  userID,
			"total":    ord.Total,
		}
		if err := s.Producer.PublishEvent(ctx, events.TopicOrderEvents, fmt.Sprint(userID), event); err != nil {
			l.Warn("order event publish failed", "order_id", ord.ID, "error", err)
		}
	}

	if s.Delivery != nil {
		s.Delivery.Schedule(ord.ID)
	}

	return placed, nil
}

func (s *Service) appendHistory(ctx context.Context, userID uint, lines []cart.Line, st *checkout.State, totals cart.Totals, ord *models.Order) error {
	entries, err := s.History(ctx, userID)
	if err != nil {
		return err
	}

	entries = append(entries, HistoryEntry{
		OrderID:  ord.ID.String(),
		Date:     time.Now().UTC().Format(time.RFC3339),
		Items:    lines,
		Shipping: *st.Shipping,
		Payment:  *st.Payment,
		Totals:   totals,
	})

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return s.KV.Set(ctx, historyKey(userID), string(data))
}

// History returns the locally kept order snapshots, newest last.
func (s *Service) History(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	raw, err := s.KV.Get(ctx, historyKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}
