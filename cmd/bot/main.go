package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/amaa-remind/internal/ai"
	"github.com/hray3182/amaa-remind/internal/assistant"
	"github.com/hray3182/amaa-remind/internal/bot"
	"github.com/hray3182/amaa-remind/internal/calendar"
	"github.com/hray3182/amaa-remind/internal/config"
	"github.com/hray3182/amaa-remind/internal/database"
	"github.com/hray3182/amaa-remind/internal/persona"
	"github.com/hray3182/amaa-remind/internal/reminder"
	"github.com/hray3182/amaa-remind/internal/repository"
	"github.com/hray3182/amaa-remind/internal/repository/sqlite"
	"github.com/hray3182/amaa-remind/internal/scheduler"
	"github.com/hray3182/amaa-remind/internal/server"
	"github.com/hray3182/amaa-remind/internal/stats"
)

const (
	providerMaxTokens   = 512
	providerTemperature = 0.3
	initDataMaxAge      = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	mode := persona.ParseMode(cfg.BotMode)
	p, err := persona.Load(mode, cfg.PersonasFile)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, string(mode), logger)
	if err != nil {
		return err
	}
	defer st.close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram API: %w", err)
	}
	sender := bot.NewSender(api)

	providers := newProviders(cfg)
	gen := ai.NewGenerator(logger, providers...)
	if len(providers) == 0 {
		logger.Warn("No text generation provider configured, using scripted replies only")
	} else {
		logger.Info("Text generation providers", "order", gen.Providers())
	}
	aiClient := ai.NewClient(gen, loc, logger)

	connector, err := calendar.NewConnector(calendar.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, st.tokens, loc, logger)
	if err != nil {
		return err
	}
	if !cfg.CalendarConfigured() {
		logger.Warn("Google OAuth is not configured, /connect links will not work")
	}

	reminders := reminder.NewEngine(st.reminders, sender, p, reminder.Config{
		Lead:      cfg.ReminderLead,
		Retention: cfg.ReminderRetention,
	}, logger)

	svc := assistant.New(assistant.Deps{
		State:     st.state,
		Calendars: connector,
		AI:        aiClient,
		Reminders: reminders,
		Stats:     stats.NewTracker(st.stats, loc),
		Sender:    sender,
	}, assistant.Config{
		Persona:      p,
		BotName:      cfg.BotName,
		Location:     loc,
		Extraction:   assistant.ParseExtractionMode(cfg.ExtractionMode),
		ReminderLead: cfg.ReminderLead,
	}, logger)

	b := bot.New(api, svc, logger)
	if err := b.RegisterCommands(); err != nil {
		logger.Warn("Failed to register commands", "error", err)
	}
	webhookURL := ""
	if cfg.TelegramWebhook {
		webhookURL = cfg.WebhookURL
	}
	if err := b.SetWebhook(webhookURL); err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Sweep:        cfg.ReminderSweep,
		DailySummary: cfg.DailySummarySchedule,
		Location:     loc,
	}, svc, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.HTTPAddr,
		CronSecret:     cfg.CronSecret,
		BotToken:       cfg.TelegramToken,
		InitDataMaxAge: initDataMaxAge,
	}, server.Deps{Assistant: svc, OAuth: connector, Commands: b}, logger)

	logger.Info("Starting bot",
		"mode", mode, "webhook", cfg.TelegramWebhook, "extraction", cfg.ExtractionMode, "tz", loc.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return sched.Start(ctx) })
	if !cfg.TelegramWebhook {
		g.Go(func() error {
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("Shut down")
	return err
}

type stores struct {
	state     assistant.StateStore
	tokens    calendar.TokenStore
	reminders reminder.Store
	stats     stats.Store
	close     func()
}

// openStores uses PostgreSQL when DATABASE_URI is set and a local SQLite
// file otherwise.
func openStores(ctx context.Context, cfg *config.Config, mode string, logger *slog.Logger) (*stores, error) {
	if cfg.DatabaseURI != "" {
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to database")

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database migrations completed")

		return &stores{
			state:     repository.NewUserStateRepository(db, mode),
			tokens:    repository.NewTokenRepository(db, mode),
			reminders: repository.NewReminderRepository(db, mode),
			stats:     repository.NewStatsRepository(db, mode),
			close:     db.Close,
		}, nil
	}

	store, err := sqlite.Open(cfg.SQLitePath, mode)
	if err != nil {
		return nil, err
	}
	logger.Info("Opened SQLite database", "path", cfg.SQLitePath)
	return &stores{
		state:     store,
		tokens:    store,
		reminders: store,
		stats:     store,
		close: func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close database", "error", err)
			}
		},
	}, nil
}

// newProviders returns the configured backends in fallback order.
func newProviders(cfg *config.Config) []ai.Provider {
	candidates := []ai.ProviderConfig{
		{Name: "gemini", APIKey: cfg.Gemini.APIKey, BaseURL: cmp.Or(cfg.Gemini.BaseURL, ai.GeminiBaseURL), Model: cfg.Gemini.Model},
		{Name: "groq", APIKey: cfg.Groq.APIKey, BaseURL: cmp.Or(cfg.Groq.BaseURL, ai.GroqBaseURL), Model: cfg.Groq.Model},
		{Name: "mistral", APIKey: cfg.Mistral.APIKey, BaseURL: cmp.Or(cfg.Mistral.BaseURL, ai.MistralBaseURL), Model: cfg.Mistral.Model},
	}

	var providers []ai.Provider
	for _, c := range candidates {
		if !c.Configured() {
			continue
		}
		c.MaxTokens = providerMaxTokens
		c.Temperature = providerTemperature
		providers = append(providers, ai.NewOpenAIProvider(c))
	}
	return providers
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
