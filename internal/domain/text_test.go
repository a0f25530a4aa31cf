package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk(t *testing.T) {
	if got := Chunk("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("want single chunk, got %v", got)
	}
	text := strings.Repeat("ж", 25)
	got := Chunk(text, 10)
	if len(got) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(got))
	}
	if utf8.RuneCountInString(got[2]) != 5 || strings.Join(got, "") != text {
		t.Fatalf("chunks do not reassemble: %v", got)
	}
}

func TestProgressBar(t *testing.T) {
	cases := map[float64]string{
		0:   "[□□□□□□□□□□]",
		50:  "[■■■■■□□□□□]",
		100: "[■■■■■■■■■■]",
		140: "[■■■■■■■■■■]",
		-5:  "[□□□□□□□□□□]",
	}
	for in, want := range cases {
		if got := ProgressBar(in); got != want {
			t.Fatalf("ProgressBar(%v): want %s, got %s", in, want, got)
		}
	}
}

func TestTruncateAndFirstSentence(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("want abc…, got %s", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Fatalf("want abc, got %s", got)
	}
	if got := FirstSentence("One. Two. Three."); got != "One." {
		t.Fatalf("want One., got %s", got)
	}
}

func TestParseConversion(t *testing.T) {
	cases := map[string]Conversion{
		"100 usd eur":      {100, "USD", "EUR"},
		"2.5 GBP to JPY":   {2.5, "GBP", "JPY"},
		"1,000 inr in usd": {1000, "INR", "USD"},
		"50usd eur":        {50, "USD", "EUR"},
	}
	for in, want := range cases {
		got, err := ParseConversion(in)
		if err != nil {
			t.Fatalf("ParseConversion(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseConversion(%q): want %+v, got %+v", in, want, got)
		}
	}
	for _, in := range []string{"", "100", "abc usd eur", "100 dollars eur", "100 usd to"} {
		if _, err := ParseConversion(in); !errors.Is(err, ErrBadConversion) {
			t.Fatalf("ParseConversion(%q): want ErrBadConversion, got %v", in, err)
		}
	}
}

func TestResolveLanguage(t *testing.T) {
	cases := map[string]string{"de": "de", "German": "de", "ger": "de", "english": "en", "Span": "es"}
	for in, want := range cases {
		got, ok := ResolveLanguage(in)
		if !ok || got != want {
			t.Fatalf("ResolveLanguage(%q): want %s, got %s", in, want, got)
		}
	}
	for _, in := range []string{"", "x", "klingon"} {
		if _, ok := ResolveLanguage(in); ok {
			t.Fatalf("ResolveLanguage(%q): want no match", in)
		}
	}
	if LanguageName("ja") != "Japanese" || LanguageName("auto") != "Auto Detect" || LanguageName("xx") != "xx" {
		t.Fatalf("unexpected language names")
	}
}
