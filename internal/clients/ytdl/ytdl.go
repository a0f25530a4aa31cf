// Package ytdl wraps the yt-dlp command-line tool.
package ytdl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Format picks the best mp4 up to 1080p.
const Format = "bv*[height<=1080][ext=mp4]+ba[ext=m4a]/mp4"

// ProgressStep is the minimum progress delta reported to callers.
const ProgressStep = 5.0

var (
	ErrTooLarge       = errors.New("video is too large")
	ErrPrivate        = errors.New("video is private")
	ErrUnavailable    = errors.New("video is not available")
	ErrDownloadFailed = errors.New("download failed")
)

var (
	youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`)
	percentRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
)

// ValidURL reports whether u looks like a youtube.com or youtu.be link.
func ValidURL(u string) bool { return youtubeURL.MatchString(strings.TrimSpace(u)) }

type Info struct {
	Title string `json:"title"`
}

type Client struct {
	Bin string
}

func New(bin string) *Client {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &Client{Bin: bin}
}

// Info reads video metadata without downloading.
func (c *Client) Info(ctx context.Context, url string) (Info, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Bin, "--dump-json", "--no-warnings", "--no-playlist", url)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Info{}, classify(err, stderr.String())
	}
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return Info{}, fmt.Errorf("decode video info: %w", err)
	}
	return info, nil
}

// Download saves the video under dir with a random name and returns its path.
// onProgress, if set, is called whenever progress advances by ProgressStep.
func (c *Client) Download(ctx context.Context, url, dir string, onProgress func(percent float64)) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+".mp4")

	cmd := exec.CommandContext(ctx, c.Bin,
		"-f", Format,
		"--merge-output-format", "mp4",
		"--output", path,
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--progress",
		url,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	var stderr lockedBuffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	trackProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(path)
		return "", classify(err, stderr.String())
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: file not found", ErrDownloadFailed)
	}
	return path, nil
}

func trackProgress(r io.Reader, onProgress func(float64)) {
	sc := bufio.NewScanner(r)
	sc.Split(scanLinesOrCR)
	last := 0.0
	for sc.Scan() {
		m := percentRe.FindStringSubmatch(sc.Text())
		if m == nil || onProgress == nil {
			continue
		}
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if p-last >= ProgressStep {
			last = p
			onProgress(p)
		}
	}
	// drain so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

// scanLinesOrCR splits on '\n' or '\r'; yt-dlp redraws progress with carriage returns.
func scanLinesOrCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func classify(err error, stderr string) error {
	msg := stderr + " " + err.Error()
	switch {
	case strings.Contains(msg, "too large"):
		return fmt.Errorf("%w: %v", ErrTooLarge, err)
	case strings.Contains(msg, "Private video"):
		return fmt.Errorf("%w: %v", ErrPrivate, err)
	case strings.Contains(msg, "not available"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v: %s", ErrDownloadFailed, err, strings.TrimSpace(tail(stderr, 300)))
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
