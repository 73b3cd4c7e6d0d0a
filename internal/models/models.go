package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusProcessing     = "Processing"
	StatusShipped        = "Shipped"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
)

// StatusRank orders the delivery statuses so that later stages compare
// greater than earlier ones. Unknown statuses rank below Processing.
func StatusRank(status string) int {
	switch status {
	case StatusProcessing:
		return 1
	case StatusShipped:
		return 2
	case StatusOutForDelivery:
		return 3
	case StatusDelivered:
		return 4
	}
	return 0
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `gorm:"not null"                 json:"description"`
	Category    string  `gorm:"index"                    json:"category"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Image       string  `json:"image"`
	Count       uint    `json:"count"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"index"                    json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// Order is immutable once created except for status transitions, which are
// performed only by the delivery worker.
type Order struct {
	ID          uuid.UUID `gorm:"primaryKey"     json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Status      string    `gorm:"not null"       json:"status"`
	Subtotal    float64   `gorm:"not null"       json:"subtotal"`
	ShippingFee float64   `gorm:"not null"       json:"shipping_fee"`
	Tax         float64   `gorm:"not null"       json:"tax"`
	Total       float64   `gorm:"not null"       json:"total"`
	CreatedAt   time.Time `json:"date"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a cart line snapshotted at order time. Name and UnitPrice are
// copied from the product so later catalog edits do not rewrite history.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey"                 json:"id"`
	OrderID   uuid.UUID `gorm:"index;not null"             json:"order_id"`
	ProductID uint      `gorm:"not null"                   json:"product_id"`
	Name      string    `gorm:"not null"                   json:"name"`
	UnitPrice float64   `gorm:"not null"                   json:"price"`
	Quantity  uint      `gorm:"default:1;check:quantity>0" json:"quantity"`
}

// ShippingInfo.Email is stored lower-cased so the tracking lookup can use a
// plain equality filter and stay case-insensitive.
type ShippingInfo struct {
	ID       uint      `gorm:"primaryKey"           json:"id"`
	OrderID  uuid.UUID `gorm:"uniqueIndex;not null" json:"order_id"`
	FullName string    `gorm:"not null"             json:"full_name"`
	Email    string    `gorm:"index;not null"       json:"email"`
	Phone    string    `gorm:"not null"             json:"phone"`
	Address  string    `gorm:"not null"             json:"address"`
	City     string    `gorm:"not null"             json:"city"`
	State    string    `gorm:"not null"             json:"state"`
	ZipCode  string    `gorm:"not null"             json:"zip_code"`
	Country  string    `gorm:"not null"             json:"country"`
}

// PaymentInfo only ever holds masked card data. The full number and CVV are
// redacted before the record is handed to the repository.
type PaymentInfo struct {
	ID             uint      `gorm:"primaryKey"           json:"id"`
	OrderID        uuid.UUID `gorm:"uniqueIndex;not null" json:"order_id"`
	CardholderName string    `gorm:"not null"             json:"cardholder_name"`
	CardLast4      string    `gorm:"not null"             json:"card_last4"`
	CardType       string    `json:"card_type"`
	ExpiryMonth    int       `gorm:"not null"             json:"expiry_month"`
	ExpiryYear     int       `gorm:"not null"             json:"expiry_year"`
	CVV            string    `gorm:"not null"             json:"-"`
}
