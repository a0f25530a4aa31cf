// Package reddit fetches random image posts from public subreddit listings.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

const (
	DefaultBaseURL = "https://www.reddit.com"
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/93.0.4577.63 Safari/537.36"
)

var (
	// ErrEmpty means the listing had no posts at all.
	ErrEmpty = errors.New("subreddit not found or has no posts")
	// ErrNoMemes means posts exist but none is a still image.
	ErrNoMemes = errors.New("no valid memes found")
)

var (
	sorts       = []string{"hot", "top", "new"}
	timeFilters = []string{"all", "year", "month", "week"}
	imageURL    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
)

// Meme is one image post.
type Meme struct {
	Title      string
	URL        string
	Author     string
	Subreddit  string
	Upvotes    int
	Link       string
	Sort       string
	TimeFilter string
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	Ups       int    `json:"ups"`
	Permalink string `json:"permalink"`
	IsVideo   bool   `json:"is_video"`
	Stickied  bool   `json:"stickied"`
}

type Client struct {
	BaseURL string
	// Fallback is drawn from when no subreddit is requested.
	Fallback []string
	api      *webapi.Client
	intn     func(n int) int
}

func New(subreddits []string) *Client {
	c := &Client{
		BaseURL:  DefaultBaseURL,
		Fallback: subreddits,
		api:      webapi.New("reddit", 15*time.Second),
		intn:     rand.IntN,
	}
	c.api.UserAgent = browserUA
	return c
}

// Random fetches a random image post; an empty subreddit picks one from Fallback.
func (c *Client) Random(ctx context.Context, subreddit string) (Meme, error) {
	sub := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(subreddit)), "r/")
	if sub == "" || sub == "random" {
		if len(c.Fallback) == 0 {
			return Meme{}, ErrEmpty
		}
		sub = c.Fallback[c.intn(len(c.Fallback))]
	}

	sort := sorts[c.intn(len(sorts))]
	q := url.Values{"limit": {"100"}}
	tf := ""
	if sort == "top" {
		tf = timeFilters[c.intn(len(timeFilters))]
		q.Set("t", tf)
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(sub), sort, q.Encode())

	var l listing
	if err := c.api.GetJSON(ctx, endpoint, http.Header{}, &l); err != nil {
		return Meme{}, err
	}
	if len(l.Data.Children) == 0 {
		return Meme{}, ErrEmpty
	}

	var candidates []post
	for _, ch := range l.Data.Children {
		p := ch.Data
		if imageURL.MatchString(p.URL) && !p.IsVideo && !p.Stickied {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Meme{}, ErrNoMemes
	}
	p := candidates[c.intn(len(candidates))]
	return Meme{
		Title:      p.Title,
		URL:        p.URL,
		Author:     p.Author,
		Subreddit:  p.Subreddit,
		Upvotes:    p.Ups,
		Link:       "https://reddit.com" + p.Permalink,
		Sort:       sort,
		TimeFilter: tf,
	}, nil
}
