package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/lifecycle"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyDelivered  = errors.New("order already delivered")
	ErrInvalidQuery      = errors.New("invalid history query")
	ErrInvalidOrder      = errors.New("invalid order")
)

// Publisher announces placed orders to the owner's live feed.
type Publisher interface {
	PublishNewOrder(order models.Order) error
}

var activeStatuses = []models.Status{models.StatusPending, models.StatusPreparing, models.StatusReady}

var historyStatuses = []models.Status{models.StatusPending, models.StatusPreparing, models.StatusReady, models.StatusDelivered}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	publisher Publisher // nil when no broker is configured
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, publisher Publisher) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// ActiveOrders returns the orders the owner still has to work on.
func (s *OrderService) ActiveOrders(ownerID string) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByOwner(ownerID, repositories.OrderFilter{Statuses: activeStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	return orders, nil
}

// History returns placed orders inside the window described by q.
func (s *OrderService) History(ownerID string, q models.HistoryQuery) ([]models.Order, error) {
	f, err := s.historyFilter(q)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListByOwner(ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list order history: %w", err)
	}
	return orders, nil
}

func (s *OrderService) historyFilter(q models.HistoryQuery) (repositories.OrderFilter, error) {
	f := repositories.OrderFilter{Statuses: historyStatuses}
	switch {
	case q.From != "":
		from, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return f, fmt.Errorf("%w: from: %v", ErrInvalidQuery, err)
		}
		f.From = from
	case q.Date != "":
		day, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return f, fmt.Errorf("%w: date: %v", ErrInvalidQuery, err)
		}
		f.From, f.To = day, day.AddDate(0, 0, 1)
	case q.Last > 0:
		f.From = s.now().AddDate(0, 0, -q.Last)
	case q.Range != "":
		parts := strings.Split(q.Range, ",")
		if len(parts) != 2 {
			return f, fmt.Errorf("%w: range must be <from>,<to>", ErrInvalidQuery)
		}
		from, err := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
		if err != nil {
			return f, fmt.Errorf("%w: range start: %v", ErrInvalidQuery, err)
		}
		to, err := time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
		if err != nil {
			return f, fmt.Errorf("%w: range end: %v", ErrInvalidQuery, err)
		}
		if to.Before(from) {
			return f, fmt.Errorf("%w: range end before start", ErrInvalidQuery)
		}
		f.From, f.To = from, to.AddDate(0, 0, 1)
	}
	return f, nil
}

func (s *OrderService) ownedOrder(ownerID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// ChangeStatus moves an order one step forward. Skips and reversals are rejected.
func (s *OrderService) ChangeStatus(ownerID, orderID string, status models.Status) (*models.Order, error) {
	order, err := s.ownedOrder(ownerID, orderID)
	if err != nil {
		return nil, err
	}
	from := order.EffectiveStatus()
	if !lifecycle.CanTransition(from, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}
	if err := s.orderRepo.UpdateStatus(order.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status for order %s: %w", order.ID, err)
	}
	order.Status = status

	log.WithFields(log.Fields{"order_id": order.ID, "from": from, "to": status}).Info("Order status changed")
	return order, nil
}

// MarkDelivered confirms pickup of the order whose barcode carries number.
func (s *OrderService) MarkDelivered(ownerID, number string) (*models.Order, error) {
	order, err := s.orderRepo.GetByNumber(ownerID, strings.TrimSpace(number))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", number, err)
	}
	status := order.EffectiveStatus()
	if status == models.StatusDelivered {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDelivered, number)
	}
	if !lifecycle.CanTransition(status, models.StatusDelivered) {
		return nil, fmt.Errorf("%w: %s is %s, not ready", ErrInvalidTransition, number, status)
	}
	if err := s.orderRepo.UpdateStatus(order.ID, models.StatusDelivered); err != nil {
		return nil, fmt.Errorf("failed to mark order %s delivered: %w", order.ID, err)
	}
	order.Status = models.StatusDelivered

	log.WithFields(log.Fields{"order_id": order.ID, "number": number}).Info("Order delivered")
	return order, nil
}

// PlaceOrder stores a new pending order for ownerID and announces it.
func (s *OrderService) PlaceOrder(ownerID string, req models.Order) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Price < 0 {
			return nil, fmt.Errorf("%w: item %d needs quantity > 0 and price >= 0", ErrInvalidOrder, i)
		}
	}

	now := s.now()
	order := &models.Order{
		ID:        uuid.New().String(),
		Number:    req.Number,
		OwnerID:   ownerID,
		Status:    models.StatusPending,
		Items:     req.Items,
		Currency:  strings.ToLower(req.Currency),
		TimeSlot:  req.TimeSlot,
		Customer:  req.Customer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if order.Number == "" {
		order.Number = strings.ToUpper(order.ID[:8]) + "-" + strconv.FormatInt(now.Unix()%10000, 10)
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	logger := log.WithFields(log.Fields{"order_id": order.ID, "owner_id": ownerID})
	if s.publisher == nil {
		logger.Debug("No publisher configured, skipping new order event")
		return order, nil
	}
	if err := s.publisher.PublishNewOrder(*order); err != nil {
		// the order is stored; owners still see it on their next refresh
		logger.WithError(err).Warn("Failed to publish new order event")
	} else {
		logger.Info("Published new order event")
	}
	return order, nil
}
