// Package omdb looks movies up on the OMDb API with a small in-memory cache.
package omdb

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

const (
	DefaultBaseURL = "http://www.omdbapi.com/"
	CacheTTL       = 24 * time.Hour
)

var ErrNoKey = errors.New("omdb: api key not configured")

var imdbID = regexp.MustCompile(`^tt\d+$`)

// LookupError is OMDb's own "Response":"False" answer, e.g. "Movie not found!".
type LookupError struct{ Message string }

func (e *LookupError) Error() string { return e.Message }

type Movie struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Genre      string `json:"Genre"`
	Language   string `json:"Language"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// HasPoster reports whether OMDb returned a usable poster URL.
func (m Movie) HasPoster() bool { return m.Poster != "" && m.Poster != "N/A" }

// IMDbURL links to the title page.
func (m Movie) IMDbURL() string { return "https://www.imdb.com/title/" + m.IMDbID }

type cached struct {
	movie Movie
	at    time.Time
}

type Client struct {
	BaseURL string
	APIKey  string
	api     *webapi.Client
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func New(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		api:     webapi.New("omdb", 15*time.Second),
		now:     time.Now,
		cache:   map[string]cached{},
	}
}

func (c *Client) Enabled() bool { return c.APIKey != "" }

// IsIMDbID reports whether query is an IMDb title id like tt0133093.
func IsIMDbID(query string) bool { return imdbID.MatchString(query) }

// Lookup finds a movie by title or IMDb id. Results are cached per query for CacheTTL.
func (c *Client) Lookup(ctx context.Context, query string) (Movie, error) {
	if !c.Enabled() {
		return Movie{}, ErrNoKey
	}
	query = strings.TrimSpace(query)
	key := strings.ToLower(query)

	c.mu.Lock()
	hit, ok := c.cache[key]
	c.mu.Unlock()
	if ok && c.now().Sub(hit.at) < CacheTTL {
		return hit.movie, nil
	}

	q := url.Values{"apikey": {c.APIKey}, "plot": {"short"}}
	if IsIMDbID(query) {
		q.Set("i", query)
	} else {
		q.Set("t", query)
	}
	var m Movie
	if err := c.api.GetJSON(ctx, c.BaseURL+"?"+q.Encode(), http.Header{}, &m); err != nil {
		return Movie{}, err
	}
	if m.Response == "False" {
		msg := m.Error
		if msg == "" {
			msg = "Movie not found"
		}
		return Movie{}, &LookupError{Message: msg}
	}
	if m.HasPoster() {
		m.Poster = HighResPoster(m.Poster)
	}

	c.mu.Lock()
	c.cache[key] = cached{movie: m, at: c.now()}
	c.mu.Unlock()
	return m, nil
}

// HighResPoster rewrites Amazon image size hints to larger renditions.
func HighResPoster(u string) string {
	u = strings.Replace(u, "_SX300", "_SX1500", 1)
	return strings.Replace(u, "_SY300", "_SY2000", 1)
}
