package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of services.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishNewOrder(order models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func orderFixture(repo *repositories.MockOrderRepository, id, owner string, status models.Status, created time.Time) {
	_ = repo.Create(&models.Order{
		ID:        id,
		Number:    "N-" + id,
		OwnerID:   owner,
		Status:    status,
		Items:     []models.OrderItem{{Title: "Pizza", Price: 9, Quantity: 1}},
		CreatedAt: created,
	})
}

func TestOrderService_ActiveOrders(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	now := time.Now()
	orderFixture(repo, "a", "owner-1", models.StatusPending, now)
	orderFixture(repo, "b", "owner-1", models.StatusReady, now.Add(time.Minute))
	orderFixture(repo, "c", "owner-1", models.StatusDelivered, now)
	orderFixture(repo, "d", "owner-1", models.StatusWithdrawn, now)
	orderFixture(repo, "e", "owner-2", models.StatusPending, now)
	service := services.NewOrderService(repo, nil)

	orders, err := service.ActiveOrders("owner-1")

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "a", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)
}

func TestOrderService_History(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	orderFixture(repo, "old", "owner-1", models.StatusDelivered, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	orderFixture(repo, "mid", "owner-1", models.StatusDelivered, time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC))
	orderFixture(repo, "new", "owner-1", models.StatusPending, time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	orderFixture(repo, "pre", "owner-1", models.StatusWithdrawn, time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	service := services.NewOrderService(repo, nil)

	tests := []struct {
		name string
		q    models.HistoryQuery
		want []string
	}{
		{"everything", models.HistoryQuery{}, []string{"old", "mid", "new"}},
		{"one date", models.HistoryQuery{Date: "2026-10-10"}, []string{"mid"}},
		{"from instant", models.HistoryQuery{From: "2026-10-15T11:00:00.000Z"}, []string{"new"}},
		{"inclusive range", models.HistoryQuery{Range: "2026-10-10,2026-10-15"}, []string{"mid", "new"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := service.History("owner-1", tt.q)
			require.NoError(t, err)
			got := make([]string, 0, len(orders))
			for _, o := range orders {
				got = append(got, o.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []models.HistoryQuery{{Date: "yesterday"}, {Range: "2026-10-10"}, {Range: "2026-10-10,2026-10-01"}, {From: "noon"}} {
		_, err := service.History("owner-1", bad)
		assert.ErrorIs(t, err, services.ErrInvalidQuery, "%+v", bad)
	}
}

func TestOrderService_ChangeStatus(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	orderFixture(repo, "a", "owner-1", models.StatusPending, time.Now())
	orderFixture(repo, "blank", "owner-1", "", time.Now())
	service := services.NewOrderService(repo, nil)

	order, err := service.ChangeStatus("owner-1", "a", models.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, order.Status)

	_, err = service.ChangeStatus("owner-1", "a", models.StatusDelivered)
	assert.ErrorIs(t, err, services.ErrInvalidTransition, "skipping ready is rejected")

	_, err = service.ChangeStatus("owner-1", "a", models.StatusPending)
	assert.ErrorIs(t, err, services.ErrInvalidTransition, "going back is rejected")

	_, err = service.ChangeStatus("owner-1", "blank", models.StatusPreparing)
	assert.NoError(t, err, "missing status reads as pending")

	_, err = service.ChangeStatus("owner-2", "a", models.StatusReady)
	assert.ErrorIs(t, err, services.ErrOrderNotFound, "other owners cannot touch the order")

	_, err = service.ChangeStatus("owner-1", "ghost", models.StatusReady)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestOrderService_MarkDelivered(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	orderFixture(repo, "r", "owner-1", models.StatusReady, time.Now())
	orderFixture(repo, "p", "owner-1", models.StatusPreparing, time.Now())
	service := services.NewOrderService(repo, nil)

	order, err := service.MarkDelivered("owner-1", " N-r ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)

	_, err = service.MarkDelivered("owner-1", "N-r")
	assert.ErrorIs(t, err, services.ErrAlreadyDelivered)

	_, err = service.MarkDelivered("owner-1", "N-p")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = service.MarkDelivered("owner-1", "N-none")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	publisher := new(MockPublisher)
	service := services.NewOrderService(repo, publisher)

	publisher.On("PublishNewOrder", mock.MatchedBy(func(o models.Order) bool {
		return o.OwnerID == "owner-1" && o.Status == models.StatusPending
	})).Return(nil).Once()

	order, err := service.PlaceOrder("owner-1", models.Order{
		Currency: "EUR",
		TimeSlot: "13:30",
		Items:    []models.OrderItem{{Title: "Pizza", Price: 9, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.Number)
	assert.Equal(t, "eur", order.Currency)
	publisher.AssertExpectations(t)

	stored, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestOrderService_PlaceOrderSurvivesPublishFailure(t *testing.T) {
	repo := repositories.NewMockOrderRepository()
	publisher := new(MockPublisher)
	service := services.NewOrderService(repo, publisher)
	publisher.On("PublishNewOrder", mock.Anything).Return(fmt.Errorf("channel closed")).Once()

	order, err := service.PlaceOrder("owner-1", models.Order{Items: []models.OrderItem{{Title: "Soup", Price: 4, Quantity: 1}}})

	require.NoError(t, err)
	_, err = repo.GetByID(order.ID)
	assert.NoError(t, err)
}

func TestOrderService_PlaceOrderValidation(t *testing.T) {
	service := services.NewOrderService(repositories.NewMockOrderRepository(), nil)

	_, err := service.PlaceOrder("owner-1", models.Order{})
	assert.ErrorIs(t, err, services.ErrInvalidOrder)

	_, err = service.PlaceOrder("owner-1", models.Order{Items: []models.OrderItem{{Title: "x", Price: 1, Quantity: 0}}})
	assert.ErrorIs(t, err, services.ErrInvalidOrder)
}
