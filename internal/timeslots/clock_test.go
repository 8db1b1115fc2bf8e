package timeslots_test

import (
	"testing"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/timeslots"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		text string
		m    models.Meridiem
		want int
	}{
		{"6:00", models.AM, 6 * 60},
		{"12:00", models.AM, 0},
		{"12:45", models.AM, 45},
		{"12:00", models.PM, 12 * 60},
		{"1:05", models.PM, 13*60 + 5},
		{"11:59", models.PM, 23*60 + 59},
		{" 09:30 ", models.AM, 9*60 + 30},
	}
	for _, tt := range tests {
		got, err := timeslots.ParseClock(tt.text, tt.m)
		assert.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, got, "%s %s", tt.text, tt.m)
	}

	for _, bad := range []string{"", "6", "6:0", "6:000", "13:00", "0:15", "6:61", "ab:cd", "-1:00"} {
		_, err := timeslots.ParseClock(bad, models.AM)
		assert.ErrorIs(t, err, timeslots.ErrInvalidTime, bad)
	}
	_, err := timeslots.ParseClock("6:00", "")
	assert.ErrorIs(t, err, timeslots.ErrInvalidTime)
}

func TestFormatAmPm(t *testing.T) {
	assert.Equal(t, "12:00 AM", timeslots.FormatAmPm(0))
	assert.Equal(t, "6:05 AM", timeslots.FormatAmPm(6*60+5))
	assert.Equal(t, "12:30 PM", timeslots.FormatAmPm(12*60+30))
	assert.Equal(t, "11:59 PM", timeslots.FormatAmPm(23*60+59))
}

func TestFormatPayload(t *testing.T) {
	tests := map[string]string{
		"6:00 AM":  "6:00",
		"12:15 AM": "0:15",
		"12:00 PM": "12:00",
		"1:30 PM":  "13:30",
		"11:45 PM": "23:45",
	}
	for in, want := range tests {
		got, err := timeslots.FormatPayload(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := timeslots.FormatPayload("6:00")
	assert.ErrorIs(t, err, timeslots.ErrInvalidTime)
}

func TestGenerate_EmptyForDegenerateInput(t *testing.T) {
	assert.Empty(t, timeslots.Generate(60, 60, 15))
	assert.Empty(t, timeslots.Generate(60, 120, 0))
}
