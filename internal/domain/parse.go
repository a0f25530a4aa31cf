package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyDuration   = errors.New("empty duration")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrTooSmall        = errors.New("duration too small")
	ErrTooLarge        = errors.New("duration too large")
	ErrInvalidClock    = errors.New("expected HH:MM")
)

const (
	MinReminder = time.Minute
	MaxReminder = 7 * 24 * time.Hour
)

var durationRe = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?$`)

// ParseDurationHuman parses human-friendly durations like "30m", "1h30m", "90m", "2h", "1d".
// A plain number means minutes. Constraints: 1m <= d <= 7d.
func ParseDurationHuman(s string) (time.Duration, error) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return 0, ErrEmptyDuration
	}

	var total time.Duration
	if isAllDigits(s) {
		mins, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
		}
		if mins > int(MaxReminder/time.Minute) {
			return 0, fmt.Errorf("%w: max 7d", ErrTooLarge)
		}
		total = time.Duration(mins) * time.Minute
	} else {
		m := durationRe.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
		}
		units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
		for i, unit := range units {
			if m[i+1] == "" {
				continue
			}
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
			}
			if n > int(MaxReminder/unit) {
				return 0, fmt.Errorf("%w: max 7d", ErrTooLarge)
			}
			total += time.Duration(n) * unit
		}
	}

	if total < MinReminder {
		return 0, fmt.Errorf("%w: min 1m", ErrTooSmall)
	}
	if total > MaxReminder {
		return 0, fmt.Errorf("%w: max 7d", ErrTooLarge)
	}
	return total, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ParseClock parses "HH:MM" (or "H:MM") into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour", ErrInvalidClock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute", ErrInvalidClock)
	}
	return h*60 + m, nil
}

// NormalizeClock returns s in canonical zero-padded "HH:MM" form.
func NormalizeClock(s string) (string, error) {
	mins, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatMinutes(mins), nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", errors.New("empty timezone")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// LocalizeTime formats t in the given timezone as "Jan 02 15:04".
func LocalizeTime(t time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format("Jan 02 15:04"), nil
}
