package models

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPendingReview OrderStatus = "pending_review"
	StatusApproved      OrderStatus = "approved"
	StatusInProduction  OrderStatus = "in_production"
	StatusShipped       OrderStatus = "shipped"
	StatusDelivered     OrderStatus = "delivered"
	StatusCancelled     OrderStatus = "cancelled"
)

// ProductInfo describes the garment the customer picked. Price comes from the catalog.
type ProductInfo struct {
	Type      string `json:"type" gorm:"type:varchar(32)"`
	Name      string `json:"name" gorm:"type:varchar(64)"`
	Color     string `json:"color" gorm:"type:varchar(32)"`
	ColorName string `json:"colorName" gorm:"type:varchar(64)"`
	Size      string `json:"size" gorm:"type:varchar(8)"`
	Price     int64  `json:"price"`
}

// CustomerInfo holds the sanitized contact and delivery details.
type CustomerInfo struct {
	FullName string `json:"fullName" gorm:"type:varchar(255)"`
	Email    string `json:"email" gorm:"type:varchar(255);index"`
	Phone    string `json:"phone" gorm:"type:varchar(32)"`
	City     string `json:"city" gorm:"type:varchar(128)"`
	Address  string `json:"address" gorm:"type:varchar(512)"`
	Notes    string `json:"notes" gorm:"type:text"`
}

// DesignFile is the metadata of an uploaded file kept by the file store.
type DesignFile struct {
	Filename     string    `json:"filename" gorm:"type:varchar(255)"`
	OriginalName string    `json:"originalName" gorm:"type:varchar(255)"`
	Size         int64     `json:"size"`
	Path         string    `json:"path" gorm:"type:varchar(1024)"`
	Mimetype     string    `json:"mimetype" gorm:"type:varchar(64)"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Pricing is always computed server-side.
type Pricing struct {
	ProductPrice int64 `json:"productPrice"`
	PrintingCost int64 `json:"printingCost"`
	ShippingCost int64 `json:"shippingCost"`
	TotalPrice   int64 `json:"totalPrice"`
}

// StatusEntry is one line of the order's audit trail.
type StatusEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   int64       `json:"-" gorm:"index"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(32)"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note" gorm:"type:varchar(255)"`
}

// NotificationStatus records the outcome of the two emails sent for a new order.
type NotificationStatus struct {
	AdminEmailSent    bool       `json:"adminEmailSent"`
	CustomerEmailSent bool       `json:"customerEmailSent"`
	EmailSentAt       *time.Time `json:"emailSentAt,omitempty"`
}

// Order represents one customer's customization request.
type Order struct {
	ID            int64              `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderNumber   string             `json:"orderNumber" gorm:"type:varchar(64);uniqueIndex"`
	Product       ProductInfo        `json:"product" gorm:"embedded;embeddedPrefix:product_"`
	Customer      CustomerInfo       `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Design        DesignFile         `json:"design" gorm:"embedded;embeddedPrefix:design_"`
	Mockup        *DesignFile        `json:"mockup,omitempty" gorm:"serializer:json"`
	Pricing       Pricing            `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	Status        OrderStatus        `json:"status" gorm:"type:varchar(32);index"`
	StatusHistory []StatusEntry      `json:"statusHistory" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Notifications NotificationStatus `json:"emailNotifications" gorm:"embedded;embeddedPrefix:notify_"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// AssignID sets the identifier and derives the human-facing order number from it.
func (o *Order) AssignID(id int64, now time.Time) {
	o.ID = id
	o.OrderNumber = fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), id)
}

// OrderSummary is what the customer gets back after a successful submission.
type OrderSummary struct {
	OrderID           int64       `json:"orderId"`
	OrderNumber       string      `json:"orderNumber"`
	TotalPrice        int64       `json:"totalPrice"`
	EstimatedDelivery string      `json:"estimatedDelivery"`
	Status            OrderStatus `json:"status"`
}
