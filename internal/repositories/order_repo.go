package repositories

import (
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
)

// OrderFilter narrows ListByOwner. Zero values mean no restriction.
type OrderFilter struct {
	Statuses []models.Status
	From     time.Time // created at or after
	To       time.Time // created before
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByNumber(ownerID, number string) (*models.Order, error)
	ListByOwner(ownerID string, f OrderFilter) ([]models.Order, error)
	UpdateStatus(id string, status models.Status) error
}
