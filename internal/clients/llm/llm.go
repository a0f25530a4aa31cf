// Package llm talks to the Gemini generateContent REST endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/webapi"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"

	// HistoryTurns is how many turns per chat are replayed as context.
	HistoryTurns = 10
	// MaxInput is the longest message accepted for chat.
	MaxInput = 30720
)

var ErrEmptyResponse = errors.New("llm: empty response")

const intentPrompt = `You are an intent detector for a meme bot. Analyze if this message indicates the user wants to see a meme.
If they mention a specific subreddit, extract it.

Respond in this format:
- If user wants a random meme: "meme:random"
- If user specifies a subreddit: "meme:subredditname" (without r/ prefix)
- If not asking for meme: "other"

Examples:
"send me a meme" -> "meme:random"
"get a meme from r/memes" -> "meme:memes"
"show meme from dankmemes" -> "meme:dankmemes"
"how are you" -> "other"

Message: %q`

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generateRequest struct {
	Contents []Content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	api     *webapi.Client

	mu      sync.Mutex
	history map[int64][]Content
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Model:   model,
		api:     webapi.New("gemini", 60*time.Second),
		history: map[int64][]Content{},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.APIKey != "" }

// Generate sends contents and returns the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, contents []Content) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Model))
	header := http.Header{"X-Goog-Api-Key": {c.APIKey}}

	var out generateResponse
	if err := c.api.PostJSON(ctx, endpoint, header, generateRequest{Contents: contents}, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// Chat replies to message using the chat's recent history as context.
// History only advances when the model answers.
func (c *Client) Chat(ctx context.Context, chatID int64, message string) (string, error) {
	c.mu.Lock()
	turns := append(append([]Content(nil), c.history[chatID]...), Content{Role: "user", Parts: []Part{{Text: message}}})
	c.mu.Unlock()
	turns = tail(turns, HistoryTurns)

	reply, err := c.Generate(ctx, turns)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.history[chatID] = tail(append(turns, Content{Role: "model", Parts: []Part{{Text: reply}}}), HistoryTurns)
	c.mu.Unlock()
	return reply, nil
}

// Forget drops a chat's history.
func (c *Client) Forget(chatID int64) {
	c.mu.Lock()
	delete(c.history, chatID)
	c.mu.Unlock()
}

// DetectIntent classifies message; any failure is reported as IntentOther.
func (c *Client) DetectIntent(ctx context.Context, message string) (domain.Intent, error) {
	raw, err := c.Generate(ctx, []Content{{Role: "user", Parts: []Part{{Text: fmt.Sprintf(intentPrompt, message)}}}})
	if err != nil {
		return domain.Intent{Kind: domain.IntentOther}, err
	}
	return domain.ParseIntent(raw), nil
}

// tail keeps the last n turns, never starting on a model turn.
func tail(turns []Content, n int) []Content {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	for len(turns) > 0 && turns[0].Role == "model" {
		turns = turns[1:]
	}
	return turns
}
