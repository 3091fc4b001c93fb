package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"printshop/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
// Every change is a per-record transactional write.
type GORMOrderRepository struct {
	db      *gorm.DB
	startID int64
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB, startID int64) *GORMOrderRepository {
	return &GORMOrderRepository{
		db:      db,
		startID: startID,
	}
}

// Migrate creates or updates the order tables.
func (r *GORMOrderRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.Order{}, &models.StatusEntry{}); err != nil {
		return fmt.Errorf("failed to migrate order tables: %w", err)
	}
	return nil
}

// GetAll retrieves all orders from the database ordered by ID.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", orderedHistory).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its ID from the database.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", orderedHistory).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %d: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

const createAttempts = 3

// Create inserts the order and its initial history inside one transaction.
// The id is MAX(id)+1, so a concurrent insert can claim it first. Create then
// retries on gorm.ErrDuplicatedKey, which needs gorm.Config.TranslateError.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxID sql.NullInt64
			if err := tx.Model(&models.Order{}).Select("MAX(id)").Row().Scan(&maxID); err != nil {
				return err
			}
			next := r.startID
			if maxID.Valid && maxID.Int64 >= next {
				next = maxID.Int64 + 1
			}
			order.AssignID(next, order.CreatedAt)
			for i := range order.StatusHistory {
				order.StatusHistory[i].ID = 0
				order.StatusHistory[i].OrderID = 0
			}
			return tx.Create(order).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus updates the status of an order and appends a history entry.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.exists(tx, id); err != nil {
			return err
		}
		err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update status of order %d: %w", id, err)
		}
		entry := models.StatusEntry{OrderID: id, Status: status, Timestamp: now, Note: note}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append status history of order %d: %w", id, err)
		}
		return nil
	})
}

// SetNotifications records the email delivery outcome on an order.
func (r *GORMOrderRepository) SetNotifications(ctx context.Context, id int64, n models.NotificationStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.exists(tx, id); err != nil {
			return err
		}
		err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
			"notify_admin_email_sent":    n.AdminEmailSent,
			"notify_customer_email_sent": n.CustomerEmailSent,
			"notify_email_sent_at":       n.EmailSentAt,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to record notifications of order %d: %w", id, err)
		}
		return nil
	})
}

func (r *GORMOrderRepository) exists(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up order %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %d: %w", id, ErrOrderNotFound)
	}
	return nil
}

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
