package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is Telegram's limit for a single text message.
const MaxMessageLen = 4096

// Chunk splits text into pieces of at most size runes without breaking UTF-8 sequences.
func Chunk(text string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}

// ProgressBar renders a 10-cell bar like "[■■■□□□□□□□]".
func ProgressBar(percent float64) string {
	const cells = 10
	percent = max(0, min(100, percent))
	filled := int(percent*cells/100 + 0.5)
	return "[" + strings.Repeat("■", filled) + strings.Repeat("□", cells-filled) + "]"
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:max(0, n-1)]) + "…"
}

// FirstSentence returns s up to and including its first period.
func FirstSentence(s string) string {
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i+1]
	}
	return s
}

var ErrBadConversion = errors.New("expected: <amount> <FROM> [to] <TO>")

// Conversion is a parsed "/currency 100 usd to eur" request.
type Conversion struct {
	Amount float64
	From   string
	To     string
}

// ParseConversion accepts "100 USD EUR", "100 usd to eur" and "100usd eur".
func ParseConversion(args string) (Conversion, error) {
	fields := strings.Fields(strings.ToUpper(args))
	if len(fields) == 0 {
		return Conversion{}, ErrBadConversion
	}
	// split "100USD" into "100" "USD"
	if i := strings.IndexFunc(fields[0], func(r rune) bool { return r >= 'A' && r <= 'Z' }); i > 0 {
		fields = append([]string{fields[0][:i], fields[0][i:]}, fields[1:]...)
	}
	if len(fields) == 4 && (fields[2] == "TO" || fields[2] == "IN") {
		fields = append(fields[:2], fields[3])
	}
	if len(fields) != 3 || fields[2] == "TO" || fields[2] == "IN" {
		return Conversion{}, ErrBadConversion
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil || amount < 0 {
		return Conversion{}, fmt.Errorf("%w: bad amount %q", ErrBadConversion, fields[0])
	}
	if !isCurrencyCode(fields[1]) || !isCurrencyCode(fields[2]) {
		return Conversion{}, fmt.Errorf("%w: currency codes are 3 letters", ErrBadConversion)
	}
	return Conversion{Amount: amount, From: fields[1], To: fields[2]}, nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
