package models

import "time"

// Meridiem is the AM/PM half of a 12-hour clock value.
type Meridiem string

const (
	AM Meridiem = "AM"
	PM Meridiem = "PM"
)

// Slot is one bookable start time inside a section.
type Slot struct {
	Time        string `json:"time"` // "6:15 AM"
	IsAvailable bool   `json:"isAvailable"`
}

// TimeSlotSection is a generated range of slots under one date.
type TimeSlotSection struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	StartTime       string    `json:"startTime"`
	StartMeridiem   Meridiem  `json:"startAmPm"`
	EndTime         string    `json:"endTime"`
	EndMeridiem     Meridiem  `json:"endAmPm"`
	DurationMinutes int       `json:"duration"`
	Slots           []Slot    `json:"slots"`
	CreatedAt       time.Time `json:"-"`
}

// Range renders the section bounds as "6:00 AM - 7:00 AM".
func (s TimeSlotSection) Range() string {
	return s.StartTime + " " + string(s.StartMeridiem) + " - " + s.EndTime + " " + string(s.EndMeridiem)
}

// AvailableCount counts the slots still selected for submission.
func (s TimeSlotSection) AvailableCount() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.IsAvailable {
			n++
		}
	}
	return n
}

// TimeSlotRequest is the body sent to persist a section.
type TimeSlotRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Slots string `json:"slots" validate:"required"` // "6:00,6:15,13:30"
}

// TimeSlotRecord is what the backend stores for a saved section.
type TimeSlotRecord struct {
	ID           string    `json:"_id,omitempty" gorm:"primaryKey;type:varchar(36)"`
	RestaurantID string    `json:"restaurantID" gorm:"index;type:varchar(36)"`
	Date         string    `json:"date" gorm:"index;type:varchar(10)"`
	Slots        []string  `json:"slots" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TimeSlotResponse is the backend's confirmation for a saved section.
type TimeSlotResponse struct {
	Message   string          `json:"message"`
	TimeSlots *TimeSlotRecord `json:"timeSlots"`
}
