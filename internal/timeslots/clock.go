package timeslots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
)

const minutesPerDay = 24 * 60

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseClock converts a 12-hour "H:MM" reading plus meridiem into minutes since
// midnight. 12 AM is midnight and 12 PM is noon.
func ParseClock(text string, m models.Meridiem) (int, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, ErrInvalidTime
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, ErrInvalidTime
	}

	switch m {
	case models.AM:
		if hour == 12 {
			hour = 0
		}
	case models.PM:
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, ErrInvalidTime
	}
	return hour*60 + minute, nil
}

// FormatAmPm renders minutes since midnight as "6:05 AM".
func FormatAmPm(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	hour, minute := minutes/60, minutes%60
	meridiem := models.AM
	if hour >= 12 {
		meridiem = models.PM
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}

// FormatPayload converts a slot label such as "1:30 PM" into the backend's
// 24-hour form "13:30". The hour is not zero padded.
func FormatPayload(label string) (string, error) {
	clock, meridiem, ok := strings.Cut(strings.TrimSpace(label), " ")
	if !ok {
		return "", ErrInvalidTime
	}
	minutes, err := ParseClock(clock, models.Meridiem(meridiem))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60), nil
}

// Generate lays out slots from start (inclusive) to end (exclusive) every
// duration minutes. The last slot always starts before end.
func Generate(start, end, duration int) []models.Slot {
	if duration <= 0 || end <= start {
		return []models.Slot{}
	}
	slots := make([]models.Slot, 0, (end-start+duration-1)/duration)
	for cursor := start; cursor < end; cursor += duration {
		slots = append(slots, models.Slot{Time: FormatAmPm(cursor), IsAvailable: true})
	}
	return slots
}
