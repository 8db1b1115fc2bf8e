// Package history fetches past orders and narrows them to a date range.
package history

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	log "github.com/sirupsen/logrus"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrUnknownRange  = apperr.NewValidation("unknown history range")
	ErrRangeReversed = apperr.NewValidation("start date after end date")

	slotPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*(AM|PM))?`)
)

// Fetcher reads the order history from the backend.
type Fetcher interface {
	FetchOrderHistory(ctx context.Context, q models.HistoryQuery) ([]models.Order, error)
}

// Service loads and filters the order history.
type Service struct {
	api Fetcher
	now func() time.Time
}

// NewService creates a Service that reads through api.
func NewService(api Fetcher) *Service {
	return &Service{api: api, now: time.Now}
}

// WithClock replaces time.Now, mostly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BuildQuery maps a filter to the query the backend understands.
// A custom range without both bounds, and RangeAll, send nothing.
func BuildQuery(f models.HistoryFilter, now time.Time) models.HistoryQuery {
	switch f.Range {
	case models.RangeLast3Hours:
		return models.HistoryQuery{From: now.Add(-3 * time.Hour).UTC().Format(isoMillis)}
	case models.RangeToday:
		return models.HistoryQuery{Date: now.Format("2006-01-02")}
	case models.RangeWeek:
		return models.HistoryQuery{Last: 7}
	case models.RangeCustom:
		if f.From != nil && f.To != nil {
			return models.HistoryQuery{Range: f.From.Format("2006-01-02") + "," + f.To.Format("2006-01-02")}
		}
	}
	return models.HistoryQuery{}
}

// OrderTime is the moment an order is compared on: its creation day with the
// pickup slot's hour and minute applied. Orders with an unreadable slot use
// their creation time as is.
func OrderTime(o models.Order, loc *time.Location) time.Time {
	created := o.CreatedAt.In(loc)
	m := slotPattern.FindStringSubmatch(strings.TrimSpace(o.TimeSlot))
	if m == nil {
		return created
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch m[3] {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return created
	}
	y, mo, d := created.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, loc)
}

// Matches reports whether o falls inside f, evaluated at now.
func Matches(o models.Order, f models.HistoryFilter, now time.Time) bool {
	at := OrderTime(o, now.Location())
	switch f.Range {
	case models.RangeLast3Hours:
		return !at.Before(now.Add(-3 * time.Hour))
	case models.RangeToday:
		y, m, d := now.Date()
		return !at.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
	case models.RangeWeek:
		return !at.Before(now.AddDate(0, 0, -7))
	case models.RangeCustom:
		if f.From == nil || f.To == nil {
			return true
		}
		fy, fm, fd := f.From.Date()
		ty, tm, td := f.To.Date()
		start := time.Date(fy, fm, fd, 0, 0, 0, 0, now.Location())
		end := time.Date(ty, tm, td, 23, 59, 59, int(999*time.Millisecond), now.Location())
		return !at.Before(start) && !at.After(end)
	default:
		return true
	}
}

func validate(f models.HistoryFilter) error {
	switch f.Range {
	case models.RangeAll, models.RangeLast3Hours, models.RangeToday, models.RangeWeek:
		return nil
	case models.RangeCustom:
		if f.From != nil && f.To != nil && f.From.After(*f.To) {
			return ErrRangeReversed
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRange, f.Range)
	}
}

// Fetch loads the history for f. On any failure it returns an empty, non-nil
// slice with the error so the shell can render an empty list plus an error state.
func (s *Service) Fetch(ctx context.Context, f models.HistoryFilter) ([]models.Order, error) {
	if f.Range == "" {
		f.Range = models.RangeAll
	}
	if err := validate(f); err != nil {
		return []models.Order{}, err
	}

	now := s.now()
	q := BuildQuery(f, now)
	logger := log.WithFields(log.Fields{"range": f.Range, "query": q})

	orders, err := s.api.FetchOrderHistory(ctx, q)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch order history")
		return []models.Order{}, fmt.Errorf("fetch order history: %w", err)
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if Matches(o, f, now) {
			out = append(out, o)
		}
	}
	logger.WithFields(log.Fields{"fetched": len(orders), "shown": len(out)}).Debug("Order history loaded")
	return out, nil
}

// Summary renders the count line of the history view, e.g. "3 Orders (Today)".
func Summary(n int, f models.HistoryFilter) string {
	noun := "Orders"
	if n == 1 {
		noun = "Order"
	}
	line := fmt.Sprintf("%d %s", n, noun)
	switch f.Range {
	case models.RangeLast3Hours:
		line += " (Last 3 Hours)"
	case models.RangeToday:
		line += " (Today)"
	case models.RangeWeek:
		line += " (Last 7 Days)"
	case models.RangeCustom:
		if f.From != nil && f.To != nil {
			line += fmt.Sprintf(" (%s - %s)", f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
		}
	}
	return line
}
