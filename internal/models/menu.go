package models

// MenuItem is a dish in the restaurant's inventory.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gt=0"`
	Category    string  `json:"category" validate:"required"`
	Description string  `json:"description" validate:"required,max=500"`
	ImageURL    string  `json:"imageUrl" validate:"required,url"`
	IsAvailable bool    `json:"isAvailable"`
	Extras      []Extra `json:"extras"`
}
