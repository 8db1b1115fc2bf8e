package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/lifecycle"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderSource is a mock implementation of lifecycle.OrderSource
type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) FetchActiveOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderSource) SetOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func sampleOrders() []models.Order {
	return []models.Order{
		{ID: "o1", Number: "A-1", Status: models.StatusPending, Currency: "eur"},
		{ID: "o2", Number: "A-2", Status: models.StatusPreparing, Currency: "eur"},
		{ID: "o3", Number: "A-3", Status: models.StatusReady, Currency: "eur"},
		{ID: "o4", Number: "A-4", Status: models.StatusDelivered, Currency: "eur"},
		{ID: "o5", Number: "A-5", Status: models.StatusWithdrawn, Currency: "eur"},
		{ID: "o6", Number: "A-6", Currency: "eur"},
	}
}

func setupController(t *testing.T, opts ...lifecycle.Option) (*lifecycle.Controller, *MockOrderSource) {
	api := new(MockOrderSource)
	api.On("FetchActiveOrders", mock.Anything).Return(sampleOrders(), nil).Once()
	ctrl := lifecycle.NewController(api, opts...)
	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)
	return ctrl, api
}

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestController_RefreshFiltersDeliveredAndWithdrawn(t *testing.T) {
	ctrl, api := setupController(t)

	assert.Equal(t, []string{"o1", "o2", "o3", "o6"}, ids(ctrl.Orders()))
	api.AssertExpectations(t)
}

func TestController_RefreshFailureKeepsList(t *testing.T) {
	ctrl, api := setupController(t)
	api.On("FetchActiveOrders", mock.Anything).
		Return(nil, apperr.NewTransport("fetch active orders", errors.New("dial tcp: connection refused"))).Once()

	orders, err := ctrl.Refresh(context.Background())

	assert.Error(t, err)
	assert.True(t, apperr.IsTransport(err))
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.Len(t, ctrl.Orders(), 4)
	api.AssertExpectations(t)
}

func TestController_AdvancePendingToPreparing(t *testing.T) {
	ctrl, api := setupController(t)
	api.On("SetOrderStatus", mock.Anything, "o1", models.StatusPreparing).Return(nil).Once()

	res, err := ctrl.Advance(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.From)
	assert.Equal(t, models.StatusPreparing, res.To)
	assert.Equal(t, "Complete Order", res.Label)
	assert.False(t, res.AwaitingScan)

	o1, ok := ctrl.Order("o1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPreparing, o1.Status)
	o2, _ := ctrl.Order("o2")
	assert.Equal(t, models.StatusPreparing, o2.Status, "other orders stay untouched")
	api.AssertExpectations(t)
}

func TestController_AdvanceMissingStatusStartsAsPending(t *testing.T) {
	ctrl, api := setupController(t)
	api.On("SetOrderStatus", mock.Anything, "o6", models.StatusPreparing).Return(nil).Once()

	res, err := ctrl.Advance(context.Background(), "o6")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.From)
	api.AssertExpectations(t)
}

func TestController_AdvanceReadyRequestsScan(t *testing.T) {
	var requested string
	ctrl, api := setupController(t, lifecycle.WithScanRequestHandler(func(orderID string) {
		requested = orderID
	}))

	res, err := ctrl.Advance(context.Background(), "o3")

	require.NoError(t, err)
	assert.True(t, res.AwaitingScan)
	assert.Equal(t, "o3", requested)
	o3, _ := ctrl.Order("o3")
	assert.Equal(t, models.StatusReady, o3.Status)
	api.AssertNotCalled(t, "SetOrderStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_AdvanceUnknownOrder(t *testing.T) {
	ctrl, _ := setupController(t)

	_, err := ctrl.Advance(context.Background(), "nope")

	assert.ErrorIs(t, err, lifecycle.ErrOrderNotFound)
}

func TestController_AdvanceFailureLeavesStateUnchanged(t *testing.T) {
	ctrl, api := setupController(t)
	api.On("SetOrderStatus", mock.Anything, "o2", models.StatusReady).
		Return(apperr.NewProtocol("set order status", "unexpected status 500", nil)).Once()

	_, err := ctrl.Advance(context.Background(), "o2")

	require.Error(t, err)
	assert.True(t, apperr.IsProtocol(err))
	o2, _ := ctrl.Order("o2")
	assert.Equal(t, models.StatusPreparing, o2.Status)
	assert.False(t, ctrl.InFlight("o2"), "lock is released on failure")
}

func TestController_ConcurrentAdvanceIsRejected(t *testing.T) {
	ctrl, api := setupController(t)
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("SetOrderStatus", mock.Anything, "o1", models.StatusPreparing).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Advance(context.Background(), "o1")
		done <- err
	}()
	<-started

	assert.True(t, ctrl.InFlight("o1"))
	_, err := ctrl.Advance(context.Background(), "o1")
	assert.ErrorIs(t, err, lifecycle.ErrTransitionInFlight)

	close(release)
	require.NoError(t, <-done)

	api.On("SetOrderStatus", mock.Anything, "o1", models.StatusReady).Return(nil).Once()
	res, err := ctrl.Advance(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, res.To)
	api.AssertExpectations(t)
}

func TestController_RefreshKeepsRecentLocalConfirmation(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctrl, api := setupController(t, lifecycle.WithClock(clock), lifecycle.WithGraceWindow(5*time.Second))
	api.On("SetOrderStatus", mock.Anything, "o1", models.StatusPreparing).Return(nil).Once()
	_, err := ctrl.Advance(context.Background(), "o1")
	require.NoError(t, err)

	// backend has not caught up yet
	api.On("FetchActiveOrders", mock.Anything).Return(sampleOrders(), nil).Once()
	now = now.Add(2 * time.Second)
	_, err = ctrl.Refresh(context.Background())
	require.NoError(t, err)
	o1, _ := ctrl.Order("o1")
	assert.Equal(t, models.StatusPreparing, o1.Status)

	// past the grace window the server wins
	api.On("FetchActiveOrders", mock.Anything).Return(sampleOrders(), nil).Once()
	now = now.Add(10 * time.Second)
	_, err = ctrl.Refresh(context.Background())
	require.NoError(t, err)
	o1, _ = ctrl.Order("o1")
	assert.Equal(t, models.StatusPending, o1.Status)
	api.AssertExpectations(t)
}

func TestController_RefreshDuringAdvanceKeepsLocalStatus(t *testing.T) {
	ctrl, api := setupController(t)
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("SetOrderStatus", mock.Anything, "o2", models.StatusReady).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Advance(context.Background(), "o2")
		done <- err
	}()
	<-started

	refreshed := sampleOrders()
	refreshed[1].Status = models.StatusPending // stale server view
	api.On("FetchActiveOrders", mock.Anything).Return(refreshed, nil).Once()
	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)
	o2, _ := ctrl.Order("o2")
	assert.Equal(t, models.StatusPreparing, o2.Status)

	close(release)
	require.NoError(t, <-done)
	o2, _ = ctrl.Order("o2")
	assert.Equal(t, models.StatusReady, o2.Status)
}

func TestController_DetachDiscardsLateResponses(t *testing.T) {
	ctrl, api := setupController(t)
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("FetchActiveOrders", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]models.Order{{ID: "late", Status: models.StatusPending}}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Refresh(context.Background())
		done <- err
	}()
	<-started
	ctrl.Detach()
	close(release)

	assert.ErrorIs(t, <-done, lifecycle.ErrDetached)
	assert.NotContains(t, ids(ctrl.Orders()), "late")

	_, err := ctrl.Advance(context.Background(), "o1")
	assert.ErrorIs(t, err, lifecycle.ErrDetached)
}

func TestController_OrdersReturnsCopy(t *testing.T) {
	api := new(MockOrderSource)
	api.On("FetchActiveOrders", mock.Anything).Return([]models.Order{
		{ID: "o1", Items: []models.OrderItem{{Title: "Burger", Price: 5, Quantity: 1}}},
	}, nil).Once()
	ctrl := lifecycle.NewController(api)
	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)

	orders := ctrl.Orders()
	orders[0].Status = models.StatusDelivered
	orders[0].Items[0].Title = "changed"

	o1, _ := ctrl.Order("o1")
	assert.Equal(t, models.Status(""), o1.Status)
	assert.Equal(t, "Burger", o1.Items[0].Title)
}
