// Package hf calls the Hugging Face serverless inference API.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	ASRModel       = "openai/whisper-base"
)

var ErrNoToken = errors.New("hf: token not configured")

// Model is an image model offered in the picker.
type Model struct {
	Name string
	ID   string
}

// ImageModels is the picker order.
var ImageModels = []Model{
	{Name: "FLUX Dev", ID: "black-forest-labs/FLUX.1-dev"},
	{Name: "FLUX Schnell", ID: "black-forest-labs/FLUX.1-schnell"},
	{Name: "FLUX Realism", ID: "XLabs-AI/flux-RealismLora"},
	{Name: "FLUX Logo", ID: "Shakker-Labs/FLUX.1-dev-LoRA-Logo-Design"},
	{Name: "FLUX Koda", ID: "alvdansen/flux-koda"},
	{Name: "Anime Style", ID: "alvdansen/softserve_anime"},
}

// FindModel looks a model up by display name.
func FindModel(name string) (Model, bool) {
	for _, m := range ImageModels {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

type Client struct {
	BaseURL string
	Token   string
	api     *webapi.Client
}

func New(token string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Token:   token,
		api:     webapi.New("huggingface", 120*time.Second),
	}
}

func (c *Client) Enabled() bool { return c.Token != "" }

// TextToImage renders prompt with the given model and returns the encoded image.
func (c *Client) TextToImage(ctx context.Context, modelID, prompt string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrNoToken
	}
	img, err := c.api.PostJSONRaw(ctx, c.modelURL(modelID), c.auth(), map[string]string{"inputs": prompt})
	if err != nil {
		return nil, fmt.Errorf("text to image %s: %w", modelID, err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("text to image %s: empty body", modelID)
	}
	return img, nil
}

// Transcribe runs speech recognition over raw audio bytes.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !c.Enabled() {
		return "", ErrNoToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(ASRModel), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/octet-stream")

	raw, err := c.api.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("transcribe: decode: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func (c *Client) modelURL(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(c.BaseURL, "/") + "/models/" + strings.Join(parts, "/")
}

func (c *Client) auth() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.Token}}
}
