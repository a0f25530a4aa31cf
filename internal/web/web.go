// Package web serves the health probe and the tic-tac-toe mini app.
package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// initDataMaxAge bounds how old a mini app session may be when it reports a result.
const initDataMaxAge = 24 * time.Hour

var (
	ErrBadSignature = errors.New("init data signature mismatch")
	ErrStale        = errors.New("init data expired")
	ErrNoChat       = errors.New("init data carries no chat")
)

// ResultSink receives finished games. telegram.Router implements it.
type ResultSink interface {
	GameResult(chatID int64, result string) error
}

type gameResult struct {
	Type     string `json:"type"`
	Result   string `json:"result"`
	InitData string `json:"init_data"`
}

type Handler struct {
	BotToken string
	Sink     ResultSink
	Log      *zap.Logger
	Now      func() time.Time
}

// New builds the HTTP handler: GET /healthz, the mini app under /tictactoe/
// and POST /tictactoe/result.
func New(h *Handler, game fs.FS) http.Handler {
	if h.Now == nil {
		h.Now = time.Now
	}
	r := httprouter.New()

	r.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
	r.ServeFiles("/tictactoe/*filepath", http.FS(game))
	r.POST("/tictactoe/result", h.Result)

	return r
}

// Result relays a mini app game result into the chat that opened it.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body gameResult
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if body.Type != "game_result" || strings.TrimSpace(body.Result) == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	chatID, err := VerifyInitData(body.InitData, h.BotToken, h.Now())
	if err != nil {
		h.Log.Warn("rejected game result", zap.Error(err))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err := h.Sink.GameResult(chatID, body.Result); err != nil {
		h.Log.Error("deliver game result failed", zap.Error(err), zap.Int64("chatID", chatID))
		http.Error(w, "server error", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyInitData checks a Telegram Web App initData string against the bot
// token and returns the chat to answer in: the chat when present, else the user.
func VerifyInitData(raw, botToken string, now time.Time) (int64, error) {
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return 0, err
	}
	hash := vals.Get("hash")
	if hash == "" {
		return 0, ErrBadSignature
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return 0, ErrBadSignature
	}
	if !hmac.Equal(sign(vals, botToken), want) {
		return 0, ErrBadSignature
	}

	authDate, err := strconv.ParseInt(vals.Get("auth_date"), 10, 64)
	if err != nil || now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return 0, ErrStale
	}

	var party struct {
		ID int64 `json:"id"`
	}
	for _, key := range []string{"chat", "user"} {
		if v := vals.Get(key); v != "" {
			if err := json.Unmarshal([]byte(v), &party); err == nil && party.ID != 0 {
				return party.ID, nil
			}
		}
	}
	return 0, ErrNoChat
}

// sign computes HMAC-SHA256 over the sorted "key=value" lines, excluding hash,
// with a secret derived from the bot token.
func sign(vals url.Values, botToken string) []byte {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+vals.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}
