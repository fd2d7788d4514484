// Package server exposes the bot's HTTP surface: the Telegram webhook, cron
// triggers, the OAuth callback and the web app dashboard.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hray3182/amaa-remind/internal/assistant"
	"github.com/hray3182/amaa-remind/internal/bot"
	"github.com/hray3182/amaa-remind/internal/reminder"
)

// Assistant is satisfied by *assistant.Service.
type Assistant interface {
	bot.Handler
	CheckAndFireDueReminders(ctx context.Context) (reminder.SweepReport, error)
	SendDailySummaryToAllConnectedChats(ctx context.Context) (int, error)
	ConfirmConnected(ctx context.Context, chatID int64) error
	DashboardData(ctx context.Context, chatID int64) (assistant.Dashboard, error)
}

// Exchanger completes the OAuth flow; satisfied by *calendar.Connector.
type Exchanger interface {
	Exchange(ctx context.Context, code, state string) (int64, error)
}

// CommandRegistrar publishes the bot's command menu; satisfied by *bot.Bot.
type CommandRegistrar interface {
	RegisterCommands() error
}

type Config struct {
	Addr       string
	CronSecret string
	BotToken   string
	// InitDataMaxAge bounds how old a web app login may be. Zero disables
	// the check.
	InitDataMaxAge time.Duration
}

type Deps struct {
	Assistant Assistant
	OAuth     Exchanger
	Commands  CommandRegistrar
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	srv    *http.Server
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger, now: time.Now}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/webhook", s.handleAlive)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/oauth2callback", s.handleOAuthCallback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard-data", s.handleDashboard)

		r.Group(func(r chi.Router) {
			r.Use(s.requireCronSecret)
			r.Get("/check-reminders", s.handleCheckReminders)
			r.Get("/daily-summary", s.handleDailySummary)
			r.Get("/setup-commands", s.handleSetupCommands)
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) handleAlive(w http.ResponseWriter, _ *http.Request) {
	Text(w, http.StatusOK, "Amaa Remind is running 🤍")
}

// handleWebhook always answers 200 once the body decodes so Telegram does
// not redeliver updates the assistant already replied to.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		Error(w, http.StatusBadRequest, "invalid update")
		return
	}
	bot.HandleUpdate(r.Context(), s.deps.Assistant, s.logger, update)
	Text(w, http.StatusOK, "OK")
}

func (s *Server) handleCheckReminders(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Assistant.CheckAndFireDueReminders(r.Context())
	if err != nil {
		s.logger.Error("Reminder check failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	JSON(w, http.StatusOK, report)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	sent, err := s.deps.Assistant.SendDailySummaryToAllConnectedChats(r.Context())
	if err != nil {
		s.logger.Error("Daily summary incomplete", "sent", sent, "error", err)
	}
	JSON(w, http.StatusOK, map[string]any{"sent": sent, "complete": err == nil})
}

func (s *Server) handleSetupCommands(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Commands == nil {
		Error(w, http.StatusNotImplemented, "commands not available")
		return
	}
	if err := s.deps.Commands.RegisterCommands(); err != nil {
		s.logger.Error("Failed to register commands", "error", err)
		Error(w, http.StatusBadGateway, "failed to register commands")
		return
	}
	Text(w, http.StatusOK, "Successfully registered bot commands to Telegram! 🤍")
}

const connectedPage = `<!doctype html><meta charset="utf-8"><h1>✅ Berhasil!</h1><p>Kamu bisa menutup halaman ini dan kembali ke Telegram.</p>`

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code, state := r.URL.Query().Get("code"), r.URL.Query().Get("state")
	if code == "" || state == "" {
		Error(w, http.StatusBadRequest, "missing code or state")
		return
	}
	if s.deps.OAuth == nil {
		Error(w, http.StatusNotImplemented, "calendar not configured")
		return
	}

	chatID, err := s.deps.OAuth.Exchange(r.Context(), code, state)
	if err != nil {
		s.logger.Error("OAuth exchange failed", "state", state, "error", err)
		Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	if err := s.deps.Assistant.ConfirmConnected(r.Context(), chatID); err != nil {
		s.logger.Warn("Failed to confirm connection", "chat_id", chatID, "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(connectedPage))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := VerifyInitData(r.URL.Query().Get("initData"), s.cfg.BotToken, s.cfg.InitDataMaxAge, s.now())
	if err != nil {
		s.logger.Debug("Rejected dashboard request", "error", err)
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := s.deps.Assistant.DashboardData(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("Dashboard data failed", "chat_id", user.ID, "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	JSON(w, http.StatusOK, data)
}

// requireCronSecret accepts the secret as a bearer token or a ?secret=
// query parameter. An unset secret rejects every request.
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("secret")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
		if s.cfg.CronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.CronSecret)) != 1 {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
