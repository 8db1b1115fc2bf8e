// Package lifecycle owns the order status machine and the controller that keeps
// the owner's active order list in step with the backend.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
)

var (
	ErrTerminalStatus     = errors.New("order is already delivered")
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrOrderNotFound      = errors.New("order not found in the active list")
	ErrTransitionInFlight = errors.New("a status change for this order is still in progress")
	ErrDetached           = errors.New("controller detached, response discarded")
	ErrScanInFlight       = errors.New("a delivery scan is still in progress")
	ErrAlreadyScanned     = errors.New("this code was already confirmed")
)

// order of the lifecycle; withdrawn orders are outside it
var rank = map[models.Status]int{
	models.StatusPending:   0,
	models.StatusPreparing: 1,
	models.StatusReady:     2,
	models.StatusDelivered: 3,
}

// Next returns the status that follows s.
// ready moves to delivered only through a delivery scan, see DeliveryScanner.
func Next(s models.Status) (models.Status, error) {
	switch s {
	case models.StatusPending:
		return models.StatusPreparing, nil
	case models.StatusPreparing:
		return models.StatusReady, nil
	case models.StatusReady:
		return models.StatusDelivered, nil
	case models.StatusDelivered:
		return "", ErrTerminalStatus
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Label is the text of the action button shown for an order in status s.
func Label(s models.Status) string {
	switch s {
	case models.StatusPending, "":
		return "Start Order"
	case models.StatusPreparing:
		return "Complete Order"
	case models.StatusReady:
		return "Awaiting scan"
	case models.StatusDelivered:
		return "Delivered"
	default:
		return ""
	}
}

// CanTransition reports whether to is the single step after from.
func CanTransition(from, to models.Status) bool {
	next, err := Next(from)
	return err == nil && next == to
}

// IsAhead reports whether a is further along the lifecycle than b.
func IsAhead(a, b models.Status) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	return okA && okB && ra > rb
}
