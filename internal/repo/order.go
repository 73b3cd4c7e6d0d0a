package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&items).Error
}

func (r *GormRepo) CreateShippingInfo(ctx context.Context, info *models.ShippingInfo) error {
	return r.DB.WithContext(ctx).Create(info).Error
}

func (r *GormRepo) CreatePaymentInfo(ctx context.Context, info *models.PaymentInfo) error {
	return r.DB.WithContext(ctx).Create(info).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetShippingInfoByOrderAndEmail is the tracking lookup: exact match on both
// order id and email. Emails are stored lower-cased, callers must lower-case
// the candidate before querying.
func (r *GormRepo) GetShippingInfoByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*models.ShippingInfo, error) {
	var info models.ShippingInfo
	if err := r.DB.WithContext(ctx).
		Where("order_id = ? AND email = ?", orderID, email).
		First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipping info for order %s: %w", orderID, ErrNotFound)
		}
		return nil, err
	}
	return &info, nil
}

func (r *GormRepo) GetPaymentInfo(ctx context.Context, orderID uuid.UUID) (*models.PaymentInfo, error) {
	var info models.PaymentInfo
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment info for order %s: %w", orderID, ErrNotFound)
		}
		return nil, err
	}
	return &info, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
