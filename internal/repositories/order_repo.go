package repositories

import (
	"context"
	"errors"

	"printshop/internal/models"
)

// ErrOrderNotFound is returned when no order has the requested ID.
var ErrOrderNotFound = errors.New("order not found")

// DefaultStartID is the first ID handed out by an empty repository.
const DefaultStartID int64 = 1000

// OrderRepository defines the interface for order data access.
// Orders are never deleted.
type OrderRepository interface {
	// Create assigns the next ID and order number, then stores the order.
	Create(ctx context.Context, order *models.Order) error
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	// UpdateStatus replaces the status, refreshes UpdatedAt and appends a history entry.
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error
	SetNotifications(ctx context.Context, id int64, n models.NotificationStatus) error
}

// cloneOrder returns a copy that shares no slices or pointers with o.
func cloneOrder(o models.Order) models.Order {
	c := o
	c.StatusHistory = append([]models.StatusEntry(nil), o.StatusHistory...)
	if o.Mockup != nil {
		m := *o.Mockup
		c.Mockup = &m
	}
	if o.Notifications.EmailSentAt != nil {
		t := *o.Notifications.EmailSentAt
		c.Notifications.EmailSentAt = &t
	}
	return c
}
