package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeliveryConfirmer struct {
	mock.Mock
}

func (m *MockDeliveryConfirmer) MarkDelivered(ctx context.Context, scanToken string) error {
	args := m.Called(ctx, scanToken)
	return args.Error(0)
}

func TestDeliveryScanner_Scan(t *testing.T) {
	api := new(MockDeliveryConfirmer)
	delivered := 0
	scanner := lifecycle.NewDeliveryScanner(api, func(context.Context) { delivered++ })

	t.Run("Success", func(t *testing.T) {
		api.On("MarkDelivered", mock.Anything, "A-1").Return(nil).Once()
		require.NoError(t, scanner.Scan(context.Background(), " A-1 "))
		assert.Equal(t, 1, delivered)
	})

	t.Run("Duplicate code is suppressed", func(t *testing.T) {
		err := scanner.Scan(context.Background(), "A-1")
		assert.ErrorIs(t, err, lifecycle.ErrAlreadyScanned)
		assert.Equal(t, 1, delivered)
	})

	t.Run("Empty code", func(t *testing.T) {
		err := scanner.Scan(context.Background(), "  ")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("Failure can be retried", func(t *testing.T) {
		api.On("MarkDelivered", mock.Anything, "A-2").Return(apperr.NewTransport("mark delivered", errors.New("timeout"))).Once()
		err := scanner.Scan(context.Background(), "A-2")
		assert.True(t, apperr.IsTransport(err))

		api.On("MarkDelivered", mock.Anything, "A-2").Return(nil).Once()
		assert.NoError(t, scanner.Scan(context.Background(), "A-2"))
		assert.Equal(t, 2, delivered)
	})

	api.AssertExpectations(t)
}

func TestDeliveryScanner_RejectsWhileBusy(t *testing.T) {
	api := new(MockDeliveryConfirmer)
	scanner := lifecycle.NewDeliveryScanner(api, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("MarkDelivered", mock.Anything, "A-1").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- scanner.Scan(context.Background(), "A-1") }()
	<-started

	assert.ErrorIs(t, scanner.Scan(context.Background(), "B-7"), lifecycle.ErrScanInFlight)

	close(release)
	assert.NoError(t, <-done)
	api.AssertExpectations(t)
}
