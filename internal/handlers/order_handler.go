package handlers

import (
	"errors"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/middleware"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes, all behind auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	// per route: /owner/login shares the prefix and stays public
	owner := router.Group("/owner")
	owner.Get("/orders", auth, h.HandleActiveOrders)
	owner.Post("/orders", auth, h.HandlePlaceOrder)
	owner.Get("/orders/history", auth, h.HandleHistory)
	owner.Post("/order/status", auth, h.HandleStatus)
	owner.Post("/order/delivered", auth, h.HandleDelivered)
}

// orderError maps service errors to status codes.
func orderError(c *fiber.Ctx, err error, message string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrAlreadyDelivered):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidQuery), errors.Is(err, services.ErrInvalidOrder):
		status = fiber.StatusBadRequest
	}
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error(message)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// HandleActiveOrders lists the owner's pending, preparing and ready orders.
func (h *OrderHandler) HandleActiveOrders(c *fiber.Ctx) error {
	orders, err := h.service.ActiveOrders(middleware.UserID(c))
	if err != nil {
		return orderError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleHistory lists past orders filtered by from, date, last or range.
func (h *OrderHandler) HandleHistory(c *fiber.Ctx) error {
	q := models.HistoryQuery{
		From:  c.Query("from"),
		Date:  c.Query("date"),
		Last:  c.QueryInt("last"),
		Range: c.Query("range"),
	}
	orders, err := h.service.History(middleware.UserID(c), q)
	if err != nil {
		return orderError(c, err, "Could not retrieve order history")
	}
	return c.JSON(orders)
}

// HandleStatus moves an order one step along its lifecycle.
func (h *OrderHandler) HandleStatus(c *fiber.Ctx) error {
	var req models.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	order, err := h.service.ChangeStatus(middleware.UserID(c), req.OrderID, req.Status)
	if err != nil {
		return orderError(c, err, "Order update failed")
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}

// HandleDelivered confirms pickup from a scanned barcode.
func (h *OrderHandler) HandleDelivered(c *fiber.Ctx) error {
	var req models.DeliveredRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	order, err := h.service.MarkDelivered(middleware.UserID(c), req.OrderID)
	if err != nil {
		return orderError(c, err, "Could not confirm delivery")
	}
	return c.JSON(fiber.Map{
		"message": "Order delivered",
		"order":   order,
	})
}

// HandlePlaceOrder creates a pending order for the logged in owner. It stands
// in for the customer app during development.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var req models.Order
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	order, err := h.service.PlaceOrder(middleware.UserID(c), req)
	if err != nil {
		return orderError(c, err, "Could not create order")
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}
