package ytdl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeBin writes an executable shell script that stands in for yt-dlp.
func fakeBin(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidURL(t *testing.T) {
	for u, want := range map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"youtu.be/abc":                        true,
		"http://youtube.com/shorts/x":         true,
		"https://vimeo.com/123":               false,
		"youtube.com":                         false,
	} {
		if got := ValidURL(u); got != want {
			t.Errorf("ValidURL(%q) = %v", u, got)
		}
	}
}

func TestInfo(t *testing.T) {
	c := New(fakeBin(t, `echo '{"title":"Never Gonna Give You Up","id":"x"}'`))
	info, err := c.Info(context.Background(), "https://youtu.be/x")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Title != "Never Gonna Give You Up" {
		t.Fatalf("title = %q", info.Title)
	}
}

func TestInfo_ClassifiesErrors(t *testing.T) {
	c := New(fakeBin(t, `echo "ERROR: [youtube] x: Private video. Sign in" >&2; exit 1`))
	if _, err := c.Info(context.Background(), "https://youtu.be/x"); !errors.Is(err, ErrPrivate) {
		t.Fatalf("want ErrPrivate, got %v", err)
	}
	c = New(fakeBin(t, `echo "ERROR: Video unavailable. This video is not available" >&2; exit 1`))
	if _, err := c.Info(context.Background(), "https://youtu.be/x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	c = New(fakeBin(t, `exit 2`))
	if _, err := c.Info(context.Background(), "https://youtu.be/x"); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("want ErrDownloadFailed, got %v", err)
	}
}

func TestDownload_ReportsProgressInSteps(t *testing.T) {
	// the output path follows --output
	script := `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
printf '[download]   1.0%% of 10MiB\r[download]   4.9%% of 10MiB\r[download]   6.0%% of 10MiB\n'
echo '[download]  12.5% of 10MiB'
echo '[download]  13.0% of 10MiB'
echo '[download] 100.0% of 10MiB'
echo data > "$out"
`
	c := New(fakeBin(t, script))
	dir := t.TempDir()

	var seen []float64
	path, err := c.Download(context.Background(), "https://youtu.be/x", dir, func(p float64) { seen = append(seen, p) })
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing: %v", err)
	}
	want := []float64{6, 12.5, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress = %v, want %v", seen, want)
		}
	}
}

func TestDownload_MissingFile(t *testing.T) {
	c := New(fakeBin(t, `exit 0`))
	_, err := c.Download(context.Background(), "https://youtu.be/x", t.TempDir(), nil)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("want ErrDownloadFailed, got %v", err)
	}
}
