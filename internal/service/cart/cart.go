// Package cart owns the per-user shopping cart. The cart itself lives in the
// key-value store and is round-tripped on every mutation, so it survives
// restarts and is shared by every instance serving the same user.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	flatShippingFee = 5.99
	taxRate         = 0.08
)

// Line is one product entry in the cart with its quantity. Name, price and
// image are snapshotted from the catalog at add time.
type Line struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Image     string  `json:"image"`
	Quantity  uint    `json:"quantity"`
}

type Totals struct {
	TotalItems  int     `json:"total_items"`
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shipping_fee"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// Derive computes the totals from the lines alone. Pure: same lines, same
// totals. The shipping fee applies only to non-empty carts.
func Derive(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.TotalItems += int(l.Quantity)
		t.Subtotal += l.UnitPrice * float64(l.Quantity)
	}
	if t.Subtotal > 0 {
		t.ShippingFee = flatShippingFee
	}
	t.Tax = t.Subtotal * taxRate
	t.Total = t.Subtotal + t.ShippingFee + t.Tax
	return t
}

// Catalog is the product lookup the cart needs when a line is first added.
type Catalog interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type Service struct {
	KV      kvstore.Store
	Catalog Catalog
}

func key(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

// Load returns the stored cart, or an empty one when nothing is stored or the
// snapshot does not parse.
func (s *Service) Load(ctx context.Context, userID uint) ([]Line, error) {
	raw, err := s.KV.Get(ctx, key(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, nil
	}
	return lines, nil
}

func (s *Service) save(ctx context.Context, userID uint, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return s.KV.Set(ctx, key(userID), string(data))
}

// Add puts one unit of the product into the cart. A product already present
// gets its quantity incremented instead of a duplicate line.
func (s *Service) Add(ctx context.Context, userID, productID uint) ([]Line, error) {
	product, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	lines, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range lines {
		if lines[i].ProductID == product.ID {
			lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, Line{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Image:     product.Image,
			Quantity:  1,
		})
	}

	if err := s.save(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Remove deletes the matching line. Removing an absent product is a no-op.
func (s *Service) Remove(ctx context.Context, userID, productID uint) ([]Line, error) {
	lines, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	if err := s.save(ctx, userID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeQuantity adjusts the matching line by delta, clamped so the quantity
// never drops below 1. Use Remove to delete a line.
func (s *Service) ChangeQuantity(ctx context.Context, userID, productID uint, delta int) ([]Line, error) {
	lines, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		if lines[i].ProductID == productID {
			q := int(lines[i].Quantity) + delta
			if q < 1 {
				q = 1
			}
			lines[i].Quantity = uint(q)
			break
		}
	}

	if err := s.save(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.KV.Delete(ctx, key(userID))
}

func (s *Service) Totals(ctx context.Context, userID uint) (Totals, error) {
	lines, err := s.Load(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	return Derive(lines), nil
}
