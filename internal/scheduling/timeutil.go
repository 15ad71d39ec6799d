package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned for malformed or out-of-range clock
// strings and dates.
var ErrInvalidTimeFormat = errors.New("invalid time format")

const dateLayout = "2006-01-02"

// TimeToMinutes parses an HH:MM wall-clock string into minutes since
// midnight. A trailing seconds component is tolerated and ignored.
func TimeToMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	return hour*60 + minute, nil
}

// MinutesToTime formats minutes since midnight as zero-padded HH:MM.
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// WeekdayOf resolves the calendar weekday of a YYYY-MM-DD date as observed
// in the schedule's timezone. The date is anchored to noon before the
// conversion so DST transitions cannot shift it across a day boundary.
func WeekdayOf(date string, loc *time.Location) (time.Weekday, error) {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, date)
	}

	anchored := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 12, 0, 0, 0, loc)
	return anchored.Weekday(), nil
}
