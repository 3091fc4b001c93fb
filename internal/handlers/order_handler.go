package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"printshop/internal/repositories"
	"printshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Form field names of the order submission.
const (
	designFileField  = "designFile"
	mockupImageField = "mockupImage"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the order routes. Middleware in statusGuards runs
// before the status update handler only.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, statusGuards ...fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)

	statusHandlers := append(append([]fiber.Handler{}, statusGuards...), h.HandleUpdateOrderStatus)
	orderRoutes.Patch("/:id/status", statusHandlers...)
}

// HandleCreateOrder accepts a multipart order submission.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	sub := services.OrderSubmission{
		ProductType: c.FormValue("productType"),
		Color:       c.FormValue("color"),
		Size:        c.FormValue("size"),
		FullName:    c.FormValue("fullName"),
		Email:       c.FormValue("email"),
		Phone:       c.FormValue("phone"),
		City:        c.FormValue("city"),
		Address:     c.FormValue("address"),
		Notes:       c.FormValue("notes"),
	}

	design, mockup, err := h.uploads(c)
	if err != nil {
		h.logger.Warn("failed to read multipart form", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "upload error",
		})
	}

	summary, err := h.service.Submit(c.UserContext(), sub, design, mockup)
	if err != nil {
		return h.submitError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "order created",
		"data":    summary,
	})
}

// uploads extracts the design and mockup files. Requests that are not
// multipart simply carry no files.
func (h *OrderHandler) uploads(c *fiber.Ctx) (design, mockup *services.Upload, err error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil, nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, err
	}
	return firstUpload(form, designFileField), firstUpload(form, mockupImageField), nil
}

func firstUpload(form *multipart.Form, field string) *services.Upload {
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	fh := files[0]
	return &services.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *OrderHandler) submitError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		if verr.Field == services.FieldDesignFile {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
				"field": verr.Field,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation error",
			"details": []string{verr.Message},
			"field":   verr.Field,
		})
	}

	var ferr *services.FileConstraintError
	if errors.As(err, &ferr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ferr.Message,
			"field": ferr.Field,
		})
	}

	h.logger.Error("failed to create order", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal server error",
		"message": "please retry the order later or contact support",
	})
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext())
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal server error",
			"message": "could not retrieve orders",
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	id, ok := orderID(c)
	if !ok {
		return orderNotFound(c)
	}

	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return orderNotFound(c)
		}
		h.logger.Error("failed to get order", zap.Int64("order_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal server error",
			"message": "could not retrieve order",
		})
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := orderID(c)
	if !ok {
		return orderNotFound(c)
	}

	var updateData struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	// Parsed values alias the request buffer, which fasthttp reuses.
	status := utils.CopyString(updateData.Status)

	err := h.service.SetStatus(c.UserContext(), id, status)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return orderNotFound(c)
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
				"field": verr.Field,
			})
		}
		h.logger.Error("failed to update order status", zap.Int64("order_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal server error",
			"message": "could not update order status",
		})
	}

	h.logger.Info("order status updated", zap.Int64("order_id", id), zap.String("status", status))
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("order status updated to %s", strings.TrimSpace(status)),
	})
}

func orderID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil
}

func orderNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "order not found",
	})
}
