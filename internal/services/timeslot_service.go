package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidSlots is returned for a request whose slot list does not parse.
var ErrInvalidSlots = errors.New("invalid time slots")

var slot24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// TimeSlotService stores the pickup slots owners publish.
type TimeSlotService struct {
	repo     repositories.TimeSlotRepository
	validate *validator.Validate
}

// NewTimeSlotService creates a new TimeSlotService.
func NewTimeSlotService(repo repositories.TimeSlotRepository) *TimeSlotService {
	return &TimeSlotService{repo: repo, validate: validator.New()}
}

// Generate validates a comma separated list of 24-hour H:MM slots and saves it.
func (s *TimeSlotService) Generate(restaurantID string, req models.TimeSlotRequest) (*models.TimeSlotRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlots, err)
	}

	var slots []string
	for _, raw := range strings.Split(req.Slots, ",") {
		slot := strings.TrimSpace(raw)
		m := slot24.FindStringSubmatch(slot)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlots, slot)
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlots, slot)
		}
		slots = append(slots, slot)
	}

	record := &models.TimeSlotRecord{
		RestaurantID: restaurantID,
		Date:         req.Date,
		Slots:        slots,
	}
	if err := s.repo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to save time slots: %w", err)
	}
	return record, nil
}
