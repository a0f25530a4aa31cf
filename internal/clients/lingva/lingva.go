// Package lingva translates text through public Lingva Translate mirrors.
package lingva

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

// MirrorTimeout bounds each mirror attempt.
const MirrorTimeout = 5 * time.Second

var ErrNoMirrors = errors.New("lingva: no mirrors configured")

type Result struct {
	Text           string
	DetectedSource string
}

type response struct {
	Translation string `json:"translation"`
	Info        struct {
		DetectedSource string `json:"detectedSource"`
	} `json:"info"`
}

type Client struct {
	Mirrors []string
	api     *webapi.Client
}

func New(mirrors []string) *Client {
	clean := make([]string, 0, len(mirrors))
	for _, m := range mirrors {
		if m = strings.TrimRight(strings.TrimSpace(m), "/"); m != "" {
			clean = append(clean, m)
		}
	}
	return &Client{Mirrors: clean, api: webapi.New("lingva", MirrorTimeout)}
}

// Translate tries each mirror in order and returns the first success.
// An empty source means auto-detect.
func (c *Client) Translate(ctx context.Context, text, target, source string) (Result, error) {
	if len(c.Mirrors) == 0 {
		return Result{}, ErrNoMirrors
	}
	if source == "" {
		source = "auto"
	}

	var errs []error
	for _, m := range c.Mirrors {
		res, err := c.try(ctx, m, text, target, source)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("all translation mirrors failed: %w", errors.Join(errs...))
}

func (c *Client) try(ctx context.Context, mirror, text, target, source string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, MirrorTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/v1/%s/%s/%s", mirror,
		url.PathEscape(source), url.PathEscape(target), url.PathEscape(text))
	var out response
	if err := c.api.GetJSON(ctx, endpoint, http.Header{}, &out); err != nil {
		return Result{}, err
	}
	if out.Translation == "" {
		return Result{}, fmt.Errorf("%s: empty translation", mirror)
	}
	detected := out.Info.DetectedSource
	if detected == "" {
		detected = source
	}
	return Result{Text: out.Translation, DetectedSource: detected}, nil
}
