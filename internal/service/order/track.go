package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// TimelineStep is one entry of the five-step delivery timeline.
type TimelineStep struct {
	Name     string `json:"name"`
	Date     string `json:"date,omitempty"`
	Complete bool   `json:"complete"`
}

// TrackedOrder is the consolidated view assembled for a tracking lookup.
type TrackedOrder struct {
	Order    models.Order         `json:"order"`
	Items    []models.OrderItem   `json:"items"`
	Shipping *models.ShippingInfo `json:"shipping"`
	Payment  *models.PaymentInfo  `json:"payment,omitempty"`
	Progress int                  `json:"progress"`
	Timeline []TimelineStep       `json:"timeline"`
}

// Progress maps a delivery status to a completion percentage.
func Progress(status string) int {
	switch status {
	case models.StatusProcessing:
		return 25
	case models.StatusShipped:
		return 50
	case models.StatusOutForDelivery:
		return 75
	case models.StatusDelivered:
		return 100
	}
	return 0
}

// Timeline builds the monotonic five-step view: Order Placed is always
// complete, each later step completes once the status reaches or passes it.
func Timeline(status string, placed time.Time) []TimelineStep {
	rank := models.StatusRank(status)
	steps := []TimelineStep{
		{Name: "Order Placed", Date: placed.Format("Jan 2, 2006"), Complete: true},
		{Name: models.StatusProcessing, Complete: rank >= models.StatusRank(models.StatusProcessing)},
		{Name: models.StatusShipped, Complete: rank >= models.StatusRank(models.StatusShipped)},
		{Name: models.StatusOutForDelivery, Complete: rank >= models.StatusRank(models.StatusOutForDelivery)},
		{Name: models.StatusDelivered, Complete: rank >= models.StatusRank(models.StatusDelivered)},
	}
	return steps
}

// Track looks up an order by id and verifies the requester via an exact match
// on the shipping email (compared lower-cased). A missing order and a
// mismatched email produce the identical ErrNotFound so order ids cannot be
// probed without the email.
func (s *Service) Track(ctx context.Context, orderID, email string) (*TrackedOrder, error) {
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}

	ord, err := s.Backend.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	shipping, err := s.Backend.GetShippingInfoByOrderAndEmail(ctx, id, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Deliberately indistinguishable from a missing order.
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	items, err := s.Backend.ListOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}

	payment, err := s.Backend.GetPaymentInfo(ctx, id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	return &TrackedOrder{
		Order:    *ord,
		Items:    items,
		Shipping: shipping,
		Payment:  payment,
		Progress: Progress(ord.Status),
		Timeline: Timeline(ord.Status, ord.CreatedAt),
	}, nil
}
