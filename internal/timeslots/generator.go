// Package timeslots builds, edits and submits the pickup time slots a restaurant
// offers on a given date.
package timeslots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingField    = apperr.NewValidation("missing field")
	ErrInvalidTime     = apperr.NewValidation("invalid time")
	ErrInvalidDate     = apperr.NewValidation("invalid date")
	ErrEndBeforeStart  = apperr.NewValidation("end before start")
	ErrNoSlotsSelected = apperr.NewValidation("no slots selected")

	ErrSectionNotFound = errors.New("time slot section not found")
	ErrSlotOutOfRange  = errors.New("slot index out of range")
)

// Params describes one section to generate.
type Params struct {
	Date            string          `validate:"required,datetime=2006-01-02"`
	StartTime       string          `validate:"required"`
	StartMeridiem   models.Meridiem `validate:"oneof=AM PM"`
	EndTime         string          `validate:"required"`
	EndMeridiem     models.Meridiem `validate:"oneof=AM PM"`
	DurationMinutes int             `validate:"gt=0"`
}

// Submitter persists the selected slots of a section.
type Submitter interface {
	GenerateTimeSlots(ctx context.Context, req models.TimeSlotRequest) (*models.TimeSlotResponse, error)
}

// Confirmation is what the backend echoed back for a saved section.
type Confirmation struct {
	Message      string
	RestaurantID string
	Date         string
	SlotCount    int
	CreatedAt    time.Time
}

// DateSections groups the sections generated for one date.
type DateSections struct {
	Date     string
	Sections []models.TimeSlotSection
}

// Generator keeps the sections of a session keyed by date, then by section id.
type Generator struct {
	api      Submitter
	validate *validator.Validate
	now      func() time.Time

	mu       sync.Mutex
	sections map[string]map[string]*models.TimeSlotSection
}

// NewGenerator creates an empty Generator that submits through api.
func NewGenerator(api Submitter) *Generator {
	return &Generator{
		api:      api,
		validate: validator.New(),
		now:      time.Now,
		sections: make(map[string]map[string]*models.TimeSlotSection),
	}
}

// check validates p and resolves it to minutes since midnight.
func (g *Generator) check(p Params) (start, end int, err error) {
	if err := g.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return 0, 0, fmt.Errorf("validate params: %w", err)
		}
		for _, e := range verrs {
			if e.Tag() == "required" {
				return 0, 0, ErrMissingField
			}
		}
		for _, e := range verrs {
			if e.Field() == "Date" {
				return 0, 0, ErrInvalidDate
			}
		}
		return 0, 0, ErrInvalidTime
	}

	if start, err = ParseClock(p.StartTime, p.StartMeridiem); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(p.EndTime, p.EndMeridiem); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, ErrEndBeforeStart
	}
	return start, end, nil
}

// Build validates p, generates its slots and stores them as a new section under
// p.Date. Nothing is sent to the backend.
func (g *Generator) Build(p Params) (models.TimeSlotSection, error) {
	start, end, err := g.check(p)
	if err != nil {
		return models.TimeSlotSection{}, err
	}

	section := &models.TimeSlotSection{
		ID:              uuid.New().String(),
		Date:            p.Date,
		StartTime:       strings.TrimSpace(p.StartTime),
		StartMeridiem:   p.StartMeridiem,
		EndTime:         strings.TrimSpace(p.EndTime),
		EndMeridiem:     p.EndMeridiem,
		DurationMinutes: p.DurationMinutes,
		Slots:           Generate(start, end, p.DurationMinutes),
		CreatedAt:       g.now(),
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sections[p.Date] == nil {
		g.sections[p.Date] = make(map[string]*models.TimeSlotSection)
	}
	g.sections[p.Date][section.ID] = section

	log.WithFields(log.Fields{
		"date":    p.Date,
		"section": section.ID,
		"range":   section.Range(),
		"slots":   len(section.Slots),
	}).Debug("Time slot section generated")
	return copySection(section), nil
}

// Toggle flips the availability of one slot and returns its new state.
func (g *Generator) Toggle(date, sectionID string, index int) (models.Slot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	section, err := g.lookup(date, sectionID)
	if err != nil {
		return models.Slot{}, err
	}
	if index < 0 || index >= len(section.Slots) {
		return models.Slot{}, fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	section.Slots[index].IsAvailable = !section.Slots[index].IsAvailable
	return section.Slots[index], nil
}

// Section returns a copy of one section.
func (g *Generator) Section(date, sectionID string) (models.TimeSlotSection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	section, err := g.lookup(date, sectionID)
	if err != nil {
		return models.TimeSlotSection{}, err
	}
	return copySection(section), nil
}

// Sections lists every section, dates ascending and sections in creation order.
func (g *Generator) Sections() []DateSections {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]DateSections, 0, len(g.sections))
	for date, byID := range g.sections {
		group := DateSections{Date: date}
		for _, s := range byID {
			group.Sections = append(group.Sections, copySection(s))
		}
		sort.Slice(group.Sections, func(i, j int) bool {
			a, b := group.Sections[i], group.Sections[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Delete removes a section. The date disappears with its last section.
func (g *Generator) Delete(date, sectionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.lookup(date, sectionID); err != nil {
		return err
	}
	delete(g.sections[date], sectionID)
	if len(g.sections[date]) == 0 {
		delete(g.sections, date)
	}
	return nil
}

// PayloadSlots returns the backend form of every available slot, in order.
func PayloadSlots(section models.TimeSlotSection) ([]string, error) {
	out := make([]string, 0, len(section.Slots))
	for _, slot := range section.Slots {
		if !slot.IsAvailable {
			continue
		}
		v, err := FormatPayload(slot.Time)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Persist submits the available slots of a section. An empty selection fails
// before anything is sent. The section itself is not modified.
func (g *Generator) Persist(ctx context.Context, date, sectionID string) (*Confirmation, error) {
	section, err := g.Section(date, sectionID)
	if err != nil {
		return nil, err
	}

	selected, err := PayloadSlots(section)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoSlotsSelected
	}

	req := models.TimeSlotRequest{Date: date, Slots: strings.Join(selected, ",")}
	logger := log.WithFields(log.Fields{"date": date, "section": sectionID, "slots": len(selected)})

	resp, err := g.api.GenerateTimeSlots(ctx, req)
	if err != nil {
		logger.WithError(err).Warn("Saving time slots failed")
		return nil, fmt.Errorf("save time slots: %w", err)
	}
	if resp == nil || resp.Message == "" || resp.TimeSlots == nil || resp.TimeSlots.CreatedAt.IsZero() {
		logger.Error("Unexpected response while saving time slots")
		return nil, apperr.NewProtocol("save time slots", "malformed confirmation", nil)
	}

	logger.WithField("created_at", resp.TimeSlots.CreatedAt).Info("Time slots saved")
	return &Confirmation{
		Message:      resp.Message,
		RestaurantID: resp.TimeSlots.RestaurantID,
		Date:         resp.TimeSlots.Date,
		SlotCount:    len(resp.TimeSlots.Slots),
		CreatedAt:    resp.TimeSlots.CreatedAt,
	}, nil
}

// lookup must be called with g.mu held.
func (g *Generator) lookup(date, sectionID string) (*models.TimeSlotSection, error) {
	section, ok := g.sections[date][sectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSectionNotFound, date, sectionID)
	}
	return section, nil
}

func copySection(s *models.TimeSlotSection) models.TimeSlotSection {
	out := *s
	out.Slots = append([]models.Slot(nil), s.Slots...)
	return out
}
