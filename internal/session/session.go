// Package session holds everything that lives between an owner's login and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/history"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/inventory"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/lifecycle"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/realtime"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/timeslots"

	log "github.com/sirupsen/logrus"
)

// ErrClosed is returned by operations on a session after Close.
var ErrClosed = errors.New("session closed")

// API is the backend surface a session needs. *client.Client implements it.
type API interface {
	lifecycle.OrderSource
	lifecycle.DeliveryConfirmer
	timeslots.Submitter
	history.Fetcher

	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Verify(ctx context.Context) (*models.Owner, error)
	RegisterPushToken(ctx context.Context, userID, token string) error
	SetToken(token string)
	Token() string
}

// Subscriber opens the live order feed. *realtime.Feed implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, h realtime.Handler) (realtime.Subscription, error)
}

// Options tunes a session. The zero value is usable.
type Options struct {
	GraceWindow     time.Duration
	PushToken       string
	OnScanRequested func(orderID string)
	OnNewOrder      func(ev realtime.Event)
	Menu            repositories.MenuRepository
}

// Session is one logged in owner with their controllers and live feed.
type Session struct {
	User      *models.Owner
	Orders    *lifecycle.Controller
	Scanner   *lifecycle.DeliveryScanner
	Slots     *timeslots.Generator
	History   *history.Service
	Inventory *inventory.Catalog

	api    API
	ctx    context.Context
	cancel context.CancelFunc
	onNew  func(realtime.Event)

	mu     sync.Mutex
	sub    realtime.Subscription
	closed bool
}

// Login authenticates with email and password and starts a session.
// feed may be nil, in which case new orders only show up on manual refresh.
func Login(ctx context.Context, api API, feed Subscriber, email, password string, opts Options) (*Session, error) {
	resp, err := api.Login(ctx, models.LoginRequest{Email: email, Password: password, PushToken: opts.PushToken})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return start(ctx, api, feed, resp.User, opts), nil
}

// Resume restores a session from a stored token. A rejected token is cleared
// from the client and reported as an auth error.
func Resume(ctx context.Context, api API, feed Subscriber, token string, opts Options) (*Session, error) {
	if token == "" {
		return nil, apperr.NewAuth("resume", "no stored token")
	}
	api.SetToken(token)
	owner, err := api.Verify(ctx)
	if err != nil {
		if apperr.IsAuth(err) {
			api.SetToken("")
		}
		return nil, fmt.Errorf("resume: %w", err)
	}
	return start(ctx, api, feed, owner, opts), nil
}

func start(ctx context.Context, api API, feed Subscriber, owner *models.Owner, opts Options) *Session {
	var ctrlOpts []lifecycle.Option
	if opts.GraceWindow > 0 {
		ctrlOpts = append(ctrlOpts, lifecycle.WithGraceWindow(opts.GraceWindow))
	}
	if opts.OnScanRequested != nil {
		ctrlOpts = append(ctrlOpts, lifecycle.WithScanRequestHandler(opts.OnScanRequested))
	}
	menu := opts.Menu
	if menu == nil {
		menu = repositories.NewMemoryMenuRepository()
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		User:      owner,
		Orders:    lifecycle.NewController(api, ctrlOpts...),
		Slots:     timeslots.NewGenerator(api),
		History:   history.NewService(api),
		Inventory: inventory.NewCatalog(menu),
		api:       api,
		ctx:       sctx,
		cancel:    cancel,
		onNew:     opts.OnNewOrder,
	}
	s.Scanner = lifecycle.NewDeliveryScanner(api, func(ctx context.Context) {
		if _, err := s.Orders.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Refresh after delivery failed")
		}
	})

	logger := log.WithField("owner_id", owner.ID)
	if _, err := s.Orders.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("Initial order refresh failed")
	}

	if feed == nil {
		logger.Info("No live feed configured")
		return s
	}
	sub, err := feed.Subscribe(sctx, owner.ID, s.handleEvent)
	if err != nil {
		logger.WithError(err).Warn("Live order feed unavailable")
		return s
	}
	s.sub = sub
	return s
}

// handleEvent runs on the feed's goroutine. Every new order triggers a full refresh.
func (s *Session) handleEvent(ev realtime.Event) {
	if ev.Type != realtime.EventNewOrder {
		return
	}
	if _, err := s.Orders.Refresh(s.ctx); err != nil {
		log.WithError(err).WithField("order_id", ev.OrderID).Warn("Refresh after new order failed")
	}
	if s.onNew != nil {
		s.onNew(ev)
	}
}

// Token returns the bearer token of the session, for the shell to store.
func (s *Session) Token() string {
	return s.api.Token()
}

// RegisterPushToken stores a device push token for the logged in owner.
func (s *Session) RegisterPushToken(ctx context.Context, token string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.api.RegisterPushToken(ctx, s.User.ID, token)
}

// FetchHistory loads past orders for f.
func (s *Session) FetchHistory(ctx context.Context, f models.HistoryFilter) ([]models.Order, error) {
	if s.isClosed() {
		return []models.Order{}, ErrClosed
	}
	return s.History.Fetch(ctx, f)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the live feed, detaches the order controller and forgets the
// token. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	s.cancel()
	s.Orders.Detach()
	s.api.SetToken("")

	if sub != nil {
		if err := sub.Cancel(); err != nil {
			return fmt.Errorf("close live feed: %w", err)
		}
	}
	return nil
}
