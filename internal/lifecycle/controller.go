package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultGraceWindow is how long a locally confirmed status wins over a refresh
// that still reports an older one.
const DefaultGraceWindow = 10 * time.Second

// OrderSource is the part of the backend the controller talks to.
type OrderSource interface {
	FetchActiveOrders(ctx context.Context) ([]models.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status models.Status) error
}

// AdvanceResult describes what Advance did.
type AdvanceResult struct {
	OrderID      string
	From         models.Status
	To           models.Status
	Label        string // button text for the new state
	AwaitingScan bool   // ready orders are closed by a delivery scan, nothing was sent
}

type confirmation struct {
	status models.Status
	at     time.Time
}

// Controller owns the active order list of one session.
type Controller struct {
	api             OrderSource
	graceWindow     time.Duration
	now             func() time.Time
	onScanRequested func(orderID string)

	mu         sync.Mutex
	orders     []models.Order
	inflight   map[string]struct{}
	confirmed  map[string]confirmation
	generation uint64
	detached   bool

	refreshes singleflight.Group
}

// Option customizes a Controller.
type Option func(*Controller)

// WithGraceWindow overrides DefaultGraceWindow.
func WithGraceWindow(d time.Duration) Option {
	return func(c *Controller) { c.graceWindow = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithScanRequestHandler is called when the owner advances a ready order,
// so the shell can open the scanner.
func WithScanRequestHandler(fn func(orderID string)) Option {
	return func(c *Controller) { c.onScanRequested = fn }
}

// NewController creates a Controller with an empty order list.
func NewController(api OrderSource, opts ...Option) *Controller {
	c := &Controller{
		api:         api,
		graceWindow: DefaultGraceWindow,
		now:         time.Now,
		inflight:    make(map[string]struct{}),
		confirmed:   make(map[string]confirmation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Orders returns a copy of the active order list.
func (c *Controller) Orders() []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneOrders(c.orders)
}

// Order returns a copy of one active order.
func (c *Controller) Order(orderID string) (models.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(orderID); i >= 0 {
		return cloneOrders(c.orders[i : i+1])[0], true
	}
	return models.Order{}, false
}

// Refresh replaces the active list with the backend's, dropping delivered and
// withdrawn orders. Concurrent calls share one fetch.
//
// A fetched order keeps its local status while a transition for it is in flight,
// or when this controller confirmed a more advanced status less than the grace
// window ago. On failure the local list is left untouched and an empty slice is
// returned with the error.
func (c *Controller) Refresh(ctx context.Context) ([]models.Order, error) {
	v, err, _ := c.refreshes.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return []models.Order{}, err
	}
	return cloneOrders(v.([]models.Order)), nil
}

func (c *Controller) refresh(ctx context.Context) ([]models.Order, error) {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return nil, ErrDetached
	}
	gen := c.generation
	c.mu.Unlock()

	fetched, err := c.api.FetchActiveOrders(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to refresh active orders")
		return nil, fmt.Errorf("refresh orders: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil, ErrDetached
	}
	c.orders = c.merge(fetched)
	log.WithField("active", len(c.orders)).Debug("Active orders refreshed")
	return cloneOrders(c.orders), nil
}

// merge must be called with c.mu held.
func (c *Controller) merge(fetched []models.Order) []models.Order {
	now := c.now()
	for id, conf := range c.confirmed {
		if now.Sub(conf.at) >= c.graceWindow {
			delete(c.confirmed, id)
		}
	}

	local := make(map[string]models.Status, len(c.orders))
	for _, o := range c.orders {
		local[o.ID] = o.EffectiveStatus()
	}

	merged := make([]models.Order, 0, len(fetched))
	for _, o := range fetched {
		if _, busy := c.inflight[o.ID]; busy {
			if s, ok := local[o.ID]; ok {
				o.Status = s
			}
		} else if conf, ok := c.confirmed[o.ID]; ok && IsAhead(conf.status, o.EffectiveStatus()) {
			o.Status = conf.status
		}
		if !o.IsActive() {
			continue
		}
		merged = append(merged, o)
	}
	return merged
}

// Advance moves an order one step forward.
//
// Ready orders are not sent anywhere: the result has AwaitingScan set and the
// scan request handler fires. Other orders are persisted on the backend first and
// only then updated locally. While that call is outstanding, further Advance calls
// for the same order fail with ErrTransitionInFlight.
func (c *Controller) Advance(ctx context.Context, orderID string) (AdvanceResult, error) {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return AdvanceResult{}, ErrDetached
	}
	i := c.indexOf(orderID)
	if i < 0 {
		c.mu.Unlock()
		return AdvanceResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if _, busy := c.inflight[orderID]; busy {
		c.mu.Unlock()
		return AdvanceResult{}, ErrTransitionInFlight
	}

	current := c.orders[i].EffectiveStatus()
	if current == models.StatusReady {
		c.mu.Unlock()
		if c.onScanRequested != nil {
			c.onScanRequested(orderID)
		}
		return AdvanceResult{
			OrderID:      orderID,
			From:         current,
			To:           current,
			Label:        Label(current),
			AwaitingScan: true,
		}, nil
	}

	next, err := Next(current)
	if err != nil {
		c.mu.Unlock()
		return AdvanceResult{}, err
	}
	c.inflight[orderID] = struct{}{}
	gen := c.generation
	c.mu.Unlock()

	err = c.api.SetOrderStatus(ctx, orderID, next)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, orderID)

	logger := log.WithFields(log.Fields{"order_id": orderID, "from": current, "to": next})
	if err != nil {
		logger.WithError(err).Warn("Order status change failed")
		return AdvanceResult{}, fmt.Errorf("advance order %s: %w", orderID, err)
	}
	if gen != c.generation {
		return AdvanceResult{}, ErrDetached
	}

	if i := c.indexOf(orderID); i >= 0 {
		c.orders[i].Status = next
	}
	c.confirmed[orderID] = confirmation{status: next, at: c.now()}
	logger.Info("Order status changed")

	return AdvanceResult{OrderID: orderID, From: current, To: next, Label: Label(next)}, nil
}

// InFlight reports whether a status change for the order is outstanding.
func (c *Controller) InFlight(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[orderID]
	return ok
}

// Detach invalidates every outstanding request. Responses that arrive later are
// dropped and further calls fail with ErrDetached.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.detached = true
}

func (c *Controller) indexOf(orderID string) int {
	for i := range c.orders {
		if c.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func cloneOrders(in []models.Order) []models.Order {
	out := make([]models.Order, len(in))
	for i, o := range in {
		items := make([]models.OrderItem, len(o.Items))
		for j, item := range o.Items {
			item.Extras = append([]models.Extra(nil), item.Extras...)
			items[j] = item
		}
		o.Items = items
		out[i] = o
	}
	return out
}
