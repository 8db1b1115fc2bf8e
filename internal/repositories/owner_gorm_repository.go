package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOwnerRepository is a GORM implementation of OwnerRepository.
type GORMOwnerRepository struct {
	db *gorm.DB
}

// NewGORMOwnerRepository creates a new instance of GORMOwnerRepository.
func NewGORMOwnerRepository(db *gorm.DB) *GORMOwnerRepository {
	return &GORMOwnerRepository{
		db: db,
	}
}

// Create creates a new owner in the database.
func (r *GORMOwnerRepository) Create(owner *models.Owner) error {
	if owner.ID == "" {
		owner.ID = uuid.New().String()
	}
	owner.Email = strings.ToLower(owner.Email)
	if err := r.db.Create(owner).Error; err != nil {
		return fmt.Errorf("failed to create owner: %w", err)
	}
	return nil
}

// GetByEmail retrieves an owner by email, case-insensitively.
func (r *GORMOwnerRepository) GetByEmail(email string) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.First(&owner, "email = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("owner with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get owner by email %s: %w", email, err)
	}
	return &owner, nil
}

// GetByID retrieves an owner by ID.
func (r *GORMOwnerRepository) GetByID(id string) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.First(&owner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("owner with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get owner by ID %s: %w", id, err)
	}
	return &owner, nil
}

// SetPushToken stores the device push token of an owner.
func (r *GORMOwnerRepository) SetPushToken(id, token string) error {
	res := r.db.Model(&models.Owner{}).Where("id = ?", id).Update("push_token", token)
	if res.Error != nil {
		return fmt.Errorf("failed to store push token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("owner with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
