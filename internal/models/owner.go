package models

import "time"

// Owner is a restaurant owner account.
type Owner struct {
	ID             string    `json:"userID" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email          string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	FirstName      string    `json:"firstName" gorm:"type:varchar(100)"`
	LastName       string    `json:"lastName" gorm:"type:varchar(100)"`
	RestaurantName string    `json:"restaurantName" gorm:"type:varchar(255)"`
	Password       string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // never serialized
	PushToken      string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}
