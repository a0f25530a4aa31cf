// Package content fetches short texts: facts, jokes and quotes.
package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

// FactCategories lists the fact categories offered in the picker.
var FactCategories = []string{"history", "science", "geography", "technology", "random"}

var ErrUnknownCategory = errors.New("unknown fact category")

// Fallback texts used when every upstream fails.
const (
	FallbackFact        = "Sorry, I couldn't fetch a fact right now. Please try again later."
	FallbackJoke        = "Why do programmers prefer dark mode? Because light attracts bugs."
	FallbackQuoteText   = "The only way to do great work is to love what you do."
	FallbackQuoteAuthor = "Steve Jobs"
)

// Endpoints groups upstream base URLs so tests can point them at httptest servers.
type Endpoints struct {
	Ninjas      string
	UselessFact string
	Joke        string
	Quote       string
}

var DefaultEndpoints = Endpoints{
	Ninjas:      "https://api.api-ninjas.com/v1/facts",
	UselessFact: "https://uselessfacts.jsph.pl/api/v2/facts/random?language=en",
	Joke:        "https://official-joke-api.appspot.com/random_joke",
	Quote:       "https://api.quotable.io/random?tags=inspirational|motivation|wisdom",
}

type Quote struct {
	Text   string
	Author string
}

func (q Quote) String() string { return q.Text + "\n— " + q.Author }

type Client struct {
	URLs      Endpoints
	NinjasKey string
	api       *webapi.Client
}

func New(ninjasKey string) *Client {
	return &Client{
		URLs:      DefaultEndpoints,
		NinjasKey: ninjasKey,
		api:       webapi.New("content", 10*time.Second),
	}
}

// ValidCategory reports whether c is one of FactCategories.
func ValidCategory(c string) bool { return slices.Contains(FactCategories, c) }

// Fact returns a fact for category. API Ninjas serves named categories when a key
// is configured; everything else falls back to the random useless-facts feed.
func (c *Client) Fact(ctx context.Context, category string) (string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "random"
	}
	if !ValidCategory(category) {
		return "", ErrUnknownCategory
	}
	if category != "random" && c.NinjasKey != "" {
		var facts []struct {
			Fact string `json:"fact"`
		}
		u := c.URLs.Ninjas + "?category=" + url.QueryEscape(category)
		err := c.api.GetJSON(ctx, u, http.Header{"X-Api-Key": {c.NinjasKey}}, &facts)
		if err == nil && len(facts) > 0 && facts[0].Fact != "" {
			return facts[0].Fact, nil
		}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := c.api.GetJSON(ctx, c.URLs.UselessFact, http.Header{}, &out); err != nil {
		return "", fmt.Errorf("fact: %w", err)
	}
	if out.Text == "" {
		return "", errors.New("fact: empty response")
	}
	return out.Text, nil
}

// Joke returns "setup\n\npunchline".
func (c *Client) Joke(ctx context.Context) (string, error) {
	var out struct {
		Setup     string `json:"setup"`
		Punchline string `json:"punchline"`
	}
	if err := c.api.GetJSON(ctx, c.URLs.Joke, http.Header{}, &out); err != nil {
		return "", fmt.Errorf("joke: %w", err)
	}
	if out.Setup == "" {
		return "", errors.New("joke: empty response")
	}
	return out.Setup + "\n\n" + out.Punchline, nil
}

// Quote returns a random inspirational quote, or the fallback quote on any failure.
func (c *Client) Quote(ctx context.Context) Quote {
	var out struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := c.api.GetJSON(ctx, c.URLs.Quote, http.Header{}, &out); err != nil || out.Content == "" || out.Author == "" {
		return Quote{Text: FallbackQuoteText, Author: FallbackQuoteAuthor}
	}
	return Quote{Text: out.Content, Author: out.Author}
}
