package repositories

import (
	"fmt"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeSlotRepository stores the pickup slots an owner published per date.
type TimeSlotRepository interface {
	Create(record *models.TimeSlotRecord) error
	ListByRestaurant(restaurantID, date string) ([]models.TimeSlotRecord, error)
}

// GORMTimeSlotRepository is a GORM implementation of TimeSlotRepository.
type GORMTimeSlotRepository struct {
	db *gorm.DB
}

// NewGORMTimeSlotRepository creates a new instance of GORMTimeSlotRepository.
func NewGORMTimeSlotRepository(db *gorm.DB) *GORMTimeSlotRepository {
	return &GORMTimeSlotRepository{db: db}
}

// Create saves a time slot record.
func (r *GORMTimeSlotRepository) Create(record *models.TimeSlotRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create time slot record: %w", err)
	}
	return nil
}

// ListByRestaurant returns the records of a restaurant for one date.
func (r *GORMTimeSlotRepository) ListByRestaurant(restaurantID, date string) ([]models.TimeSlotRecord, error) {
	records := []models.TimeSlotRecord{}
	err := r.db.Where("restaurant_id = ? AND date = ?", restaurantID, date).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return records, nil
}
