package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order as reported by the backend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"

	// StatusWithdrawn marks an order that was never placed (checkout abandoned).
	// It is not part of the lifecycle and never shows up in the active list.
	StatusWithdrawn Status = "pre"
)

// Extra is a priced add-on attached to an order item.
type Extra struct {
	ID     string  `json:"_id,omitempty" gorm:"-"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Amount int     `json:"amount"`
}

// OrderItem represents a single line of an order.
type OrderItem struct {
	Title    string  `json:"title"`
	Image    string  `json:"image,omitempty"`
	Notes    string  `json:"notes,omitempty"`
	Price    float64 `json:"price"` // base unit price, extras excluded
	Quantity int     `json:"quantity"`
	Extras   []Extra `json:"extras"`
}

// Customer is the person who placed the order.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Order represents a customer order as seen by the restaurant owner.
type Order struct {
	ID        string      `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Number    string      `json:"orderID" gorm:"uniqueIndex;type:varchar(64)"` // printed on the pickup barcode
	OwnerID   string      `json:"restaurantID,omitempty" gorm:"index;type:varchar(36)"`
	Status    Status      `json:"status" gorm:"type:varchar(16)"`
	Items     []OrderItem `json:"items" gorm:"serializer:json"`
	Currency  string      `json:"currency" gorm:"type:varchar(8)"`
	TimeSlot  string      `json:"timeSlot" gorm:"type:varchar(16)"`
	Customer  Customer    `json:"user" gorm:"serializer:json"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// EffectiveStatus reads a missing status as pending.
func (o Order) EffectiveStatus() Status {
	if o.Status == "" {
		return StatusPending
	}
	return o.Status
}

// IsActive reports whether the order belongs in the owner's working set.
func (o Order) IsActive() bool {
	s := o.EffectiveStatus()
	return s != StatusDelivered && s != StatusWithdrawn
}

// UnitTotal is the item price with all extras applied, for a single unit.
func (i OrderItem) UnitTotal() decimal.Decimal {
	unit := decimal.NewFromFloat(i.Price)
	for _, e := range i.Extras {
		unit = unit.Add(decimal.NewFromFloat(e.Price).Mul(decimal.NewFromInt(int64(e.Amount))))
	}
	return unit
}

// Total is (price + sum(extra.price*extra.amount)) * quantity.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitTotal().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the item totals of the order.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}
