package repositories

import (
	"fmt"
	"sync"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/google/uuid"
)

// MenuRepository defines the interface for menu item data access.
type MenuRepository interface {
	GetAll() ([]models.MenuItem, error)
	GetByID(id string) (*models.MenuItem, error)
	Create(item *models.MenuItem) error
	Update(item *models.MenuItem) error
	Delete(id string) error
}

// MemoryMenuRepository is an in-memory implementation of MenuRepository.
// GetAll returns items in insertion order.
type MemoryMenuRepository struct {
	items map[string]models.MenuItem
	order []string
	mu    sync.RWMutex
}

// NewMemoryMenuRepository creates a new instance of MemoryMenuRepository.
func NewMemoryMenuRepository() *MemoryMenuRepository {
	return &MemoryMenuRepository{
		items: make(map[string]models.MenuItem),
	}
}

func cloneMenuItem(item models.MenuItem) models.MenuItem {
	item.Extras = append([]models.Extra(nil), item.Extras...)
	return item
}

// GetAll returns all menu items.
func (r *MemoryMenuRepository) GetAll() ([]models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.MenuItem, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, cloneMenuItem(r.items[id]))
	}
	return list, nil
}

// GetByID returns a menu item by its ID.
func (r *MemoryMenuRepository) GetByID(id string) (*models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item with ID %s: %w", id, ErrNotFound)
	}
	item = cloneMenuItem(item)
	return &item, nil
}

// Create adds a new menu item, assigning an ID when it has none.
func (r *MemoryMenuRepository) Create(item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("menu item with ID %s already exists", item.ID)
	}
	r.items[item.ID] = cloneMenuItem(*item)
	r.order = append(r.order, item.ID)
	return nil
}

// Update replaces an existing menu item.
func (r *MemoryMenuRepository) Update(item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("menu item with ID %s for update: %w", item.ID, ErrNotFound)
	}
	r.items[item.ID] = cloneMenuItem(*item)
	return nil
}

// Delete removes a menu item by its ID.
func (r *MemoryMenuRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("menu item with ID %s for deletion: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
