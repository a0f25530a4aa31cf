package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
)

var ErrUnknownZone = errors.New("unknown location")

var nonLetters = regexp.MustCompile(`[^a-z]`)

// Locator resolves free-form place names into IANA zones.
type Locator struct {
	aliases map[string]string
	keys    []string // sorted alias keys, for deterministic partial matches
	zones   []string
}

// NewLocator builds a Locator from a lowercase alias table and a list of zone names.
func NewLocator(aliases map[string]string, zones []string) *Locator {
	l := &Locator{aliases: make(map[string]string, len(aliases)), zones: zones}
	for k, v := range aliases {
		k = strings.ToLower(strings.TrimSpace(k))
		l.aliases[k] = v
		l.keys = append(l.keys, k)
	}
	sort.Strings(l.keys)
	return l
}

// Find tries an exact alias, then a partial alias match, then a scan of zone names.
func (l *Locator) Find(location string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(location))
	if q == "" {
		return "", ErrUnknownZone
	}
	if z, ok := l.aliases[q]; ok {
		return z, nil
	}
	for _, k := range l.keys {
		if strings.Contains(k, q) || strings.Contains(q, k) {
			return l.aliases[k], nil
		}
	}

	parts := strings.Fields(q)
	for _, zone := range l.zones {
		zoneParts := strings.Split(strings.ToLower(zone), "/")
		for _, p := range parts {
			p = nonLetters.ReplaceAllString(p, "")
			if p == "" {
				continue
			}
			for _, zp := range zoneParts {
				if strings.Contains(zp, p) {
					return zone, nil
				}
			}
		}
	}
	return "", ErrUnknownZone
}

// ZoneLabel turns "America/New_York" into "New York".
func ZoneLabel(zone string) string {
	if i := strings.LastIndex(zone, "/"); i >= 0 {
		zone = zone[i+1:]
	}
	return strings.ReplaceAll(zone, "_", " ")
}

// FormatClock renders the live clock message for a zone in Telegram Markdown.
func FormatClock(now time.Time, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", err
	}
	t := now.In(loc)
	return "*" + ZoneLabel(zone) + ": " + t.Format("15:04:05") + "*\n*" + t.Format("January 02 2006") + "*", nil
}

// Greeting picks a time-of-day greeting for the given local hour.
func Greeting(hour int, name string) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good Morning " + name + "! 🌅"
	case hour >= 12 && hour < 17:
		return "Good Afternoon " + name + "! ☀️"
	case hour >= 17 && hour < 22:
		return "Good Evening " + name + "! 🌆"
	default:
		return "Good Night " + name + "! 🌙"
	}
}
