package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// Backend is the order record store. The four create calls of ProcessOrder go
// through Atomically so a partial record set can never be observed.
type Backend interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateShippingInfo(ctx context.Context, info *models.ShippingInfo) error
	CreatePaymentInfo(ctx context.Context, info *models.PaymentInfo) error

	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	GetShippingInfoByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*models.ShippingInfo, error)
	GetPaymentInfo(ctx context.Context, orderID uuid.UUID) (*models.PaymentInfo, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error

	Atomically(ctx context.Context, fn func(tx Backend) error) error
}

type gormBackend struct {
	*repo.GormRepo
}

// NewGormBackend adapts the GORM repository to the Backend interface.
func NewGormBackend(r *repo.GormRepo) Backend {
	return gormBackend{GormRepo: r}
}

func (g gormBackend) Atomically(ctx context.Context, fn func(tx Backend) error) error {
	return g.InTx(ctx, func(tx *repo.GormRepo) error {
		return fn(gormBackend{GormRepo: tx})
	})
}
