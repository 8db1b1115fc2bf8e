package repositories

import (
	"errors"
	"fmt"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create creates a new order in the database.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByNumber retrieves the owner's order printed with number.
func (r *GORMOrderRepository) GetByNumber(ownerID, number string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "owner_id = ? AND number = ?", ownerID, number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order number %s: %w", number, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by number %s: %w", number, err)
	}
	return &order, nil
}

// ListByOwner returns the owner's orders matching f, oldest first.
func (r *GORMOrderRepository) ListByOwner(ownerID string, f OrderFilter) ([]models.Order, error) {
	q := r.db.Where("owner_id = ?", ownerID)
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}

	orders := []models.Order{}
	if err := q.Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for owner %s: %w", ownerID, err)
	}
	return orders, nil
}

// UpdateStatus sets the status column of one order.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.Status) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s for status update: %w", id, ErrNotFound)
	}
	return nil
}
