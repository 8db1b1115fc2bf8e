package repositories

import "github.com/oficialjosecandido/pickeat-restaurant/internal/models"

// OwnerRepository defines the interface for owner account data access.
type OwnerRepository interface {
	Create(owner *models.Owner) error
	GetByEmail(email string) (*models.Owner, error)
	GetByID(id string) (*models.Owner, error)
	SetPushToken(id, token string) error
}
