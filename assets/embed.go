package assets

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var dataFS embed.FS

//go:embed tictactoe
var tictactoeFS embed.FS

// fallbackSubreddits is used when the embedded list is empty.
var fallbackSubreddits = []string{"memes", "dankmemes", "wholesomememes"}

// Timezones holds the place-name aliases and the zone scan list.
type Timezones struct {
	Aliases map[string]string `yaml:"aliases"`
	Zones   []string          `yaml:"zones"`
}

// LoadTimezones decodes timezones.yaml.
func LoadTimezones() (Timezones, error) {
	var tz Timezones
	if err := decode("timezones.yaml", &tz); err != nil {
		return tz, err
	}
	return tz, nil
}

// Subreddits returns the meme subreddit pool.
func Subreddits() ([]string, error) {
	var doc struct {
		Subreddits []string `yaml:"subreddits"`
	}
	if err := decode("subreddits.yaml", &doc); err != nil {
		return fallbackSubreddits, err
	}
	if len(doc.Subreddits) == 0 {
		return fallbackSubreddits, nil
	}
	return doc.Subreddits, nil
}

// TicTacToe returns the mini app's static files rooted at its directory.
func TicTacToe() fs.FS {
	sub, err := fs.Sub(tictactoeFS, "tictactoe")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return sub
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
