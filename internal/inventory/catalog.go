// Package inventory manages the restaurant's menu items.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Availability selects items by their availability flag.
type Availability string

const (
	AvailabilityAll         Availability = "all"
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// ErrItemNotFound is returned when an operation names an unknown item.
var ErrItemNotFound = errors.New("menu item not found")

// Filter narrows List. Zero values match everything; price bounds are inclusive.
type Filter struct {
	Search       string
	MinPrice     float64
	MaxPrice     float64
	Category     string
	Availability Availability
}

// NewMenuItem is the raw form input for adding a dish.
type NewMenuItem struct {
	Name        string
	Price       string
	Category    string
	Description string
	ImageURL    string
	Extras      []models.Extra
}

// Catalog is the owner's menu.
type Catalog struct {
	repo     repositories.MenuRepository
	validate *validator.Validate
}

// NewCatalog creates a Catalog backed by repo.
func NewCatalog(repo repositories.MenuRepository) *Catalog {
	return &Catalog{
		repo:     repo,
		validate: validator.New(),
	}
}

// Load seeds the catalog with items, skipping invalid ones.
func (c *Catalog) Load(items []models.MenuItem) error {
	for i := range items {
		item := items[i]
		if err := c.check(item); err != nil {
			log.WithError(err).WithField("name", item.Name).Warn("Skipping invalid menu item")
			continue
		}
		if err := c.repo.Create(&item); err != nil {
			return fmt.Errorf("load menu item %q: %w", item.Name, err)
		}
	}
	return nil
}

// List returns the items matching f in insertion order.
func (c *Catalog) List(f Filter) ([]models.MenuItem, error) {
	all, err := c.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)

	out := make([]models.MenuItem, 0, len(all))
	for _, item := range all {
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		if f.MinPrice > 0 && item.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && item.Price > f.MaxPrice {
			continue
		}
		if category != "" && !strings.EqualFold(item.Category, category) {
			continue
		}
		switch f.Availability {
		case AvailabilityAvailable:
			if !item.IsAvailable {
				continue
			}
		case AvailabilityUnavailable:
			if item.IsAvailable {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Categories returns the distinct categories in use, sorted.
func (c *Catalog) Categories() ([]string, error) {
	all, err := c.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	seen := map[string]bool{}
	out := []string{}
	for _, item := range all {
		key := strings.ToLower(item.Category)
		if !seen[key] {
			seen[key] = true
			out = append(out, item.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Add validates the input and stores a new, available item.
func (c *Catalog) Add(in NewMenuItem) (*models.MenuItem, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || !price.IsPositive() {
		return nil, apperr.NewValidation("price must be a number greater than 0")
	}

	item := models.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Price:       price.InexactFloat64(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		IsAvailable: true,
		Extras:      in.Extras,
	}
	if err := c.check(item); err != nil {
		return nil, err
	}
	if err := c.repo.Create(&item); err != nil {
		return nil, fmt.Errorf("add menu item: %w", err)
	}
	log.WithFields(log.Fields{"id": item.ID, "name": item.Name}).Info("Menu item added")
	return &item, nil
}

// ToggleAvailability flips the availability flag of one item.
func (c *Catalog) ToggleAvailability(id string) (*models.MenuItem, error) {
	item, err := c.get(id)
	if err != nil {
		return nil, err
	}
	item.IsAvailable = !item.IsAvailable
	if err := c.repo.Update(item); err != nil {
		return nil, fmt.Errorf("toggle availability: %w", err)
	}
	return item, nil
}

// Update replaces an existing item after validating it.
func (c *Catalog) Update(item models.MenuItem) (*models.MenuItem, error) {
	if _, err := c.get(item.ID); err != nil {
		return nil, err
	}
	if err := c.check(item); err != nil {
		return nil, err
	}
	if err := c.repo.Update(&item); err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return &item, nil
}

// Delete removes an item.
func (c *Catalog) Delete(id string) error {
	if err := c.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	return nil
}

func (c *Catalog) get(id string) (*models.MenuItem, error) {
	item, err := c.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

// check runs the struct tags and folds failures into one validation error.
func (c *Catalog) check(item models.MenuItem) error {
	err := c.validate.Struct(item)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.NewValidation(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", e.Field(), e.Tag()))
	}
	return &apperr.Error{Kind: apperr.Validation, Message: "invalid menu item: " + strings.Join(fields, ", "), Err: err}
}
