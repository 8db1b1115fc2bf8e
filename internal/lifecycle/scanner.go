package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"

	log "github.com/sirupsen/logrus"
)

// DeliveryConfirmer closes an order from the code printed on the customer's receipt.
type DeliveryConfirmer interface {
	MarkDelivered(ctx context.Context, scanToken string) error
}

// DeliveryScanner turns barcode reads into delivery confirmations.
// It is separate from the status machine: the token is not an order id.
type DeliveryScanner struct {
	api         DeliveryConfirmer
	onDelivered func(ctx context.Context)

	mu      sync.Mutex
	busy    bool
	scanned map[string]struct{}
}

// NewDeliveryScanner creates a scanner. onDelivered, if set, runs after every
// confirmed delivery; the session uses it to refresh the active list.
func NewDeliveryScanner(api DeliveryConfirmer, onDelivered func(ctx context.Context)) *DeliveryScanner {
	return &DeliveryScanner{
		api:         api,
		onDelivered: onDelivered,
		scanned:     make(map[string]struct{}),
	}
}

// Scan confirms the delivery behind token. A camera reports the same code many
// times per second, so reads during an outstanding call and codes that were already
// confirmed are rejected without a backend call.
func (s *DeliveryScanner) Scan(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.NewValidation("empty scan code")
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrScanInFlight
	}
	if _, done := s.scanned[token]; done {
		s.mu.Unlock()
		return ErrAlreadyScanned
	}
	s.busy = true
	s.mu.Unlock()

	err := s.api.MarkDelivered(ctx, token)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.scanned[token] = struct{}{}
	}
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).WithField("code", token).Warn("Delivery confirmation failed")
		return fmt.Errorf("mark delivered: %w", err)
	}

	log.WithField("code", token).Info("Order marked as delivered")
	if s.onDelivered != nil {
		s.onDelivered(ctx)
	}
	return nil
}
