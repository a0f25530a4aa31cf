package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/assets"
	"github.com/araneaimer/nitebot/internal/clients/content"
	"github.com/araneaimer/nitebot/internal/clients/hf"
	"github.com/araneaimer/nitebot/internal/clients/lingva"
	"github.com/araneaimer/nitebot/internal/clients/llm"
	"github.com/araneaimer/nitebot/internal/clients/omdb"
	"github.com/araneaimer/nitebot/internal/clients/rates"
	"github.com/araneaimer/nitebot/internal/clients/reddit"
	"github.com/araneaimer/nitebot/internal/clients/ytdl"
	"github.com/araneaimer/nitebot/internal/config"
	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/ratelimit"
	"github.com/araneaimer/nitebot/internal/scheduler"
	"github.com/araneaimer/nitebot/internal/store"
	"github.com/araneaimer/nitebot/internal/telegram"
	"github.com/araneaimer/nitebot/internal/web"
	"github.com/araneaimer/nitebot/internal/webapi"
)

var limiterCleanupSpec = "@every 1m"

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	subs    *store.Subscriptions
	router  *telegram.Router
	sched   *scheduler.Scheduler
	limiter *ratelimit.Limiter
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot, limiter: ratelimit.New()}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting nitebot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// start opens storage and launches the scheduler and the HTTP server.
// On error the database is closed again.
func (a *App) start(ctx context.Context) (err error) {
	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	defer func() {
		if err != nil {
			_ = a.repo.Close()
		}
	}()
	a.log.Info("sqlite ready")

	a.subs, err = store.OpenSubscriptions(a.cfg.SubscriptionsPath)
	if err != nil {
		a.log.Error("load subscriptions failed", zap.Error(err))
		return err
	}

	a.router, err = a.buildRouter()
	if err != nil {
		return err
	}

	a.sched = scheduler.New(a.subs, a.repo, a.log, a.router)
	if err = a.sched.Every(limiterCleanupSpec, a.limiter.Cleanup); err != nil {
		a.log.Error("register cleanup job failed", zap.Error(err))
		return err
	}
	if err = a.sched.Start(ctx); err != nil {
		a.log.Error("scheduler start failed", zap.Error(err))
		return err
	}

	a.httpSrv = &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: web.New(&web.Handler{
			BotToken: a.cfg.BotToken,
			Sink:     a.router,
			Log:      a.log,
		}, assets.TicTacToe()),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) buildRouter() (*telegram.Router, error) {
	tz, err := assets.LoadTimezones()
	if err != nil {
		a.log.Error("load timezones failed", zap.Error(err))
		return nil, err
	}
	subreddits, err := assets.Subreddits()
	if err != nil {
		a.log.Warn("load subreddits failed, using fallback", zap.Error(err))
	}
	defaultTZ, err := time.LoadLocation(a.cfg.DefaultTZ)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TZ: %w", err)
	}

	if a.cfg.GoogleAIKey == "" {
		a.log.Warn("GOOGLE_AI_API_KEY not set, free-form chat disabled")
	}
	if a.cfg.HuggingFace == "" {
		a.log.Warn("HUGGING_FACE_TOKEN not set, /imagine and /transcribe disabled")
	}
	if a.cfg.OMDBKey == "" {
		a.log.Warn("OMDB_API_KEY not set, /movie disabled")
	}

	return telegram.NewRouter(telegram.Deps{
		Bot:        a.bot,
		Log:        a.log,
		Repo:       a.repo,
		Subs:       a.subs,
		Limiter:    a.limiter,
		Locator:    domain.NewLocator(tz.Aliases, tz.Zones),
		LLM:        llm.New(a.cfg.GoogleAIKey, a.cfg.GeminiModel),
		HF:         hf.New(a.cfg.HuggingFace),
		Reddit:     reddit.New(subreddits),
		Movies:     omdb.New(a.cfg.OMDBKey),
		Translator: lingva.New(a.cfg.LingvaMirrors),
		Rates:      rates.New(),
		Content:    content.New(a.cfg.APINinjasKey),
		YTDL:       ytdl.New(a.cfg.YTDLPPath),
		Files:      webapi.New("telegram-files", time.Minute),
	}, telegram.Options{
		AdminID:      a.cfg.AdminUserID,
		PartnerA:     a.cfg.PartnerChatA,
		PartnerB:     a.cfg.PartnerChatB,
		PartnerNameA: a.cfg.PartnerNameA,
		PartnerNameB: a.cfg.PartnerNameB,
		DefaultTZ:    defaultTZ,
		TicTacToeURL: a.cfg.TicTacToeURL,
		TempDir:      a.cfg.TempDir,
		BotUsername:  a.bot.Self.UserName,
	}), nil
}

func (a *App) shutdown() {
	a.bot.StopReceivingUpdates()
	a.sched.Stop()

	// Create a short-lived shutdown context and cancel it immediately after use.
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	a.router.Wait()
	if a.repo != nil {
		_ = a.repo.Close()
	}
}
