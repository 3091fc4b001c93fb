package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"printshop/internal/models"

	"github.com/goccy/go-json"
)

// FileOrderRepository keeps orders in memory and rewrites a JSON snapshot of the
// whole collection after every change. An empty path disables the snapshot.
type FileOrderRepository struct {
	mu     sync.RWMutex
	orders []models.Order
	index  map[int64]int
	nextID int64
	path   string
}

// NewFileOrderRepository creates the repository and loads an existing snapshot.
// IDs resume after the highest stored ID, never below startID.
func NewFileOrderRepository(path string, startID int64) (*FileOrderRepository, error) {
	r := &FileOrderRepository{
		index:  make(map[int64]int),
		nextID: startID,
		path:   path,
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read orders snapshot %s: %w", path, err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders snapshot %s: %w", path, err)
	}
	for i, o := range r.orders {
		r.index[o.ID] = i
		if o.ID >= r.nextID {
			r.nextID = o.ID + 1
		}
	}
	return r, nil
}

// NewMemoryOrderRepository returns a repository without a snapshot file.
func NewMemoryOrderRepository() *FileOrderRepository {
	r, _ := NewFileOrderRepository("", DefaultStartID)
	return r
}

// Path returns the snapshot location, empty for a memory-only repository.
func (r *FileOrderRepository) Path() string {
	return r.path
}

// GetAll returns all orders in insertion order.
func (r *FileOrderRepository) GetAll(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		orderList = append(orderList, cloneOrder(o))
	}
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *FileOrderRepository) GetByID(_ context.Context, id int64) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %d: %w", id, ErrOrderNotFound)
	}
	o := cloneOrder(r.orders[i])
	return &o, nil
}

// Create appends a new order. Nothing is kept if the snapshot cannot be written.
func (r *FileOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	order.AssignID(r.nextID, order.CreatedAt)

	r.orders = append(r.orders, cloneOrder(*order))
	if err := r.persist(); err != nil {
		r.orders = r.orders[:len(r.orders)-1]
		return err
	}
	r.index[order.ID] = len(r.orders) - 1
	r.nextID++
	return nil
}

// UpdateStatus updates the status of an order.
func (r *FileOrderRepository) UpdateStatus(_ context.Context, id int64, status models.OrderStatus, note string) error {
	return r.mutate(id, func(o *models.Order) {
		now := time.Now()
		o.Status = status
		o.UpdatedAt = now
		o.StatusHistory = append(o.StatusHistory, models.StatusEntry{
			Status:    status,
			Timestamp: now,
			Note:      note,
		})
	})
}

// SetNotifications records the email delivery outcome on an order.
func (r *FileOrderRepository) SetNotifications(_ context.Context, id int64, n models.NotificationStatus) error {
	return r.mutate(id, func(o *models.Order) {
		o.Notifications = n
	})
}

func (r *FileOrderRepository) mutate(id int64, fn func(o *models.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("order with ID %d: %w", id, ErrOrderNotFound)
	}
	previous := r.orders[i]
	updated := cloneOrder(previous)
	fn(&updated)
	r.orders[i] = updated
	if err := r.persist(); err != nil {
		r.orders[i] = previous
		return err
	}
	return nil
}

// persist writes the full collection to a temp file and renames it over the snapshot.
// Callers must hold the write lock.
func (r *FileOrderRepository) persist() error {
	if r.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r.orders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode orders snapshot: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write orders snapshot: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace orders snapshot: %w", err)
	}
	return nil
}
