package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // healthz + mini app

	DBPath            string `envconfig:"DB_PATH" default:"./data/nite.db"`
	SubscriptionsPath string `envconfig:"SUBSCRIPTIONS_PATH" default:"./data/subscriptions.json"`
	TempDir           string `envconfig:"TEMP_DIR" default:"./temp"`
	DefaultTZ         string `envconfig:"DEFAULT_TZ" default:"UTC"`

	AdminUserID  int64  `envconfig:"ADMIN_USER_ID"`
	PartnerChatA int64  `envconfig:"PARTNER_CHAT_A"`
	PartnerChatB int64  `envconfig:"PARTNER_CHAT_B"`
	PartnerNameA string `envconfig:"PARTNER_NAME_A"`
	PartnerNameB string `envconfig:"PARTNER_NAME_B"`

	GoogleAIKey   string   `envconfig:"GOOGLE_AI_API_KEY"`
	GeminiModel   string   `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	HuggingFace   string   `envconfig:"HUGGING_FACE_TOKEN"`
	OMDBKey       string   `envconfig:"OMDB_API_KEY"`
	APINinjasKey  string   `envconfig:"API_NINJAS_KEY"`
	TicTacToeURL  string   `envconfig:"TICTACTOE_URL"`
	YTDLPPath     string   `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	LingvaMirrors []string `envconfig:"LINGVA_MIRRORS" default:"https://lingva.ml,https://lingva.fossdaily.xyz,https://translate.plausibility.cloud,https://lingva.pussthecat.org"`
}

// Load reads an optional .env file and then environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
