package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/internal/notify"
	"printshop/internal/repositories"
	"printshop/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EventPublisher emits order events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// OrderService handles business logic related to orders.
type OrderService struct {
	repo          repositories.OrderRepository
	files         storage.FileStore
	notifier      notify.Notifier
	events        EventPublisher
	logger        *zap.Logger
	catalog       models.Catalog
	validate      *validator.Validate
	now           func() time.Time
	operatorEmail string
	supportEmail  string
}

// OrderServiceOption customizes an OrderService.
type OrderServiceOption func(*OrderService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// WithOperatorEmail sets where new-order notifications go.
func WithOperatorEmail(addr string) OrderServiceOption {
	return func(s *OrderService) { s.operatorEmail = addr }
}

// WithSupportEmail sets the reply-to address of customer confirmations.
func WithSupportEmail(addr string) OrderServiceOption {
	return func(s *OrderService) { s.supportEmail = addr }
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(repo repositories.OrderRepository, files storage.FileStore, notifier notify.Notifier, events EventPublisher, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	catalog := models.DefaultCatalog()
	s := &OrderService{
		repo:          repo,
		files:         files,
		notifier:      notifier,
		events:        events,
		logger:        logger,
		catalog:       catalog,
		validate:      newValidator(catalog),
		now:           time.Now,
		operatorEmail: "admin@yourstore.com",
		supportEmail:  "support@yourstore.com",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates a new order, stores its files, persists it and notifies the
// operator and the customer. Notification failures never fail the call.
func (s *OrderService) Submit(ctx context.Context, sub OrderSubmission, design, mockup *Upload) (*models.OrderSummary, error) {
	if err := s.validateSubmission(sub); err != nil {
		return nil, err
	}
	if design == nil {
		return nil, &ValidationError{Field: FieldDesignFile, Message: "design file is required"}
	}
	designType, err := checkUpload(design, designRules)
	if err != nil {
		return nil, err
	}
	var mockupType string
	if mockup != nil {
		if mockupType, err = checkUpload(mockup, mockupRules); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var stored []string
	cleanup := func() {
		for _, p := range stored {
			if err := s.files.Delete(context.WithoutCancel(ctx), p); err != nil {
				s.logger.Error("failed to delete uploaded file", zap.String("path", p), zap.Error(err))
			}
		}
	}

	designFile, err := s.storeUpload(ctx, design, designType, now)
	if err != nil {
		return nil, fmt.Errorf("failed to store design file: %w", err)
	}
	stored = append(stored, designFile.Path)

	var mockupFile *models.DesignFile
	if mockup != nil {
		f, err := s.storeUpload(ctx, mockup, mockupType, now)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to store mockup image: %w", err)
		}
		stored = append(stored, f.Path)
		mockupFile = &f
	}

	order := s.buildOrder(sub, designFile, mockupFile, now)
	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("failed to save order", zap.String("email", order.Customer.Email), zap.Error(err))
		cleanup()
		return nil, &PersistenceError{Err: err}
	}

	delivery := FormatDeliveryDate(EstimateDelivery(order.Customer.City, now))

	order.Notifications = s.sendNotifications(ctx, order, delivery)
	if err := s.repo.SetNotifications(ctx, order.ID, order.Notifications); err != nil {
		s.logger.Warn("failed to record notification outcome", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	s.publish(ctx, "order.created", map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"productType": order.Product.Type,
		"totalPrice":  order.Pricing.TotalPrice,
		"status":      order.Status,
		"createdAt":   order.CreatedAt,
	})

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer", order.Customer.Email),
		zap.String("product", order.Product.Name),
		zap.Int64("total_price", order.Pricing.TotalPrice))

	return &models.OrderSummary{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		TotalPrice:        order.Pricing.TotalPrice,
		EstimatedDelivery: delivery,
		Status:            order.Status,
	}, nil
}

// GetOrder retrieves a single order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrders retrieves all orders in insertion order.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.repo.GetAll(ctx)
}

// SetStatus replaces the status of an existing order. Any non-empty value is accepted.
func (s *OrderService) SetStatus(ctx context.Context, id int64, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return &ValidationError{Field: FieldStatus, Message: "status is required"}
	}

	if err := s.repo.UpdateStatus(ctx, id, models.OrderStatus(status), "status updated by operator"); err != nil {
		return fmt.Errorf("failed to update order status for order %d: %w", id, err)
	}

	s.publish(ctx, "order.status_changed", map[string]any{
		"orderId": id,
		"status":  status,
	})
	return nil
}

// Catalog returns the catalog orders are validated against.
func (s *OrderService) Catalog() models.Catalog {
	return s.catalog
}

func (s *OrderService) storeUpload(ctx context.Context, u *Upload, mimetype string, now time.Time) (models.DesignFile, error) {
	rc, err := u.Open()
	if err != nil {
		return models.DesignFile{}, err
	}
	defer rc.Close()

	f, err := s.files.Store(ctx, rc, u.Filename)
	if err != nil {
		return models.DesignFile{}, err
	}
	return models.DesignFile{
		Filename:     f.Filename,
		OriginalName: u.Filename,
		Size:         f.Size,
		Path:         f.Path,
		Mimetype:     mimetype,
		UploadedAt:   now,
	}, nil
}

// buildOrder assumes sub has passed validation.
func (s *OrderService) buildOrder(sub OrderSubmission, design models.DesignFile, mockup *models.DesignFile, now time.Time) *models.Order {
	product, _ := s.catalog.Product(sub.ProductType)
	color, _ := s.catalog.Color(sub.Color)

	return &models.Order{
		Product: models.ProductInfo{
			Type:      product.Key,
			Name:      product.Name,
			Color:     color.Code,
			ColorName: color.Name,
			Size:      strings.ToUpper(strings.TrimSpace(sub.Size)),
			Price:     product.Price,
		},
		Customer: models.CustomerInfo{
			FullName: SanitizeInput(sub.FullName),
			Email:    strings.ToLower(SanitizeInput(sub.Email)),
			Phone:    NormalizePhone(sub.Phone),
			City:     SanitizeInput(sub.City),
			Address:  SanitizeInput(sub.Address),
			Notes:    SanitizeInput(sub.Notes),
		},
		Design: design,
		Mockup: mockup,
		Pricing: models.Pricing{
			ProductPrice: product.Price,
			PrintingCost: models.PrintingCost,
			ShippingCost: models.ShippingCost,
			TotalPrice:   CalculateTotal(product.Price),
		},
		Status: models.StatusPendingReview,
		StatusHistory: []models.StatusEntry{
			{Status: models.StatusPendingReview, Timestamp: now, Note: "order created, awaiting review"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// sendNotifications sends the operator and customer emails concurrently and
// turns each outcome into a flag.
func (s *OrderService) sendNotifications(ctx context.Context, order *models.Order, delivery string) models.NotificationStatus {
	var adminErr, customerErr error
	var g errgroup.Group

	g.Go(func() error {
		msg, err := notify.RenderAdminEmail(order, s.operatorEmail)
		if err == nil {
			err = s.deliver(ctx, msg)
		}
		adminErr = err
		return nil
	})
	g.Go(func() error {
		msg, err := notify.RenderCustomerEmail(order, delivery, s.supportEmail)
		if err == nil {
			err = s.deliver(ctx, msg)
		}
		customerErr = err
		return nil
	})
	_ = g.Wait()

	if adminErr != nil {
		s.logger.Warn("admin email failed", zap.String("order_number", order.OrderNumber), zap.Error(adminErr))
	}
	if customerErr != nil {
		s.logger.Warn("customer email failed", zap.String("order_number", order.OrderNumber), zap.Error(customerErr))
	}

	sentAt := s.now()
	return models.NotificationStatus{
		AdminEmailSent:    adminErr == nil,
		CustomerEmailSent: customerErr == nil,
		EmailSentAt:       &sentAt,
	}
}

// deliver keeps a misbehaving notifier from taking the request down with it.
func (s *OrderService) deliver(ctx context.Context, msg notify.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return s.notifier.Send(ctx, msg)
}

func (s *OrderService) publish(ctx context.Context, routingKey string, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("failed to publish order event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
