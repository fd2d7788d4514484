package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hray3182/amaa-remind/internal/repository"
)

const cacheSize = 256

// TokenStore persists one OAuth2 token JSON per chat.
type TokenStore interface {
	SaveToken(ctx context.Context, chatID int64, data []byte) error
	GetToken(ctx context.Context, chatID int64) ([]byte, error)
	DeleteToken(ctx context.Context, chatID int64) error
	ConnectedChatIDs(ctx context.Context) ([]int64, error)
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Connector links chats to their calendars and hands out clients.
type Connector struct {
	oauth  *oauth2.Config
	tokens TokenStore
	loc    *time.Location
	cache  *lru.Cache[int64, Calendar]
	logger *slog.Logger
}

func NewConnector(cfg OAuthConfig, tokens TokenStore, loc *time.Location, logger *slog.Logger) (*Connector, error) {
	cache, err := lru.New[int64, Calendar](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		tokens: tokens,
		loc:    loc,
		cache:  cache,
		logger: logger,
	}, nil
}

// AuthURL is the consent page link. The chat id travels as the state.
func (c *Connector) AuthURL(chatID int64) string {
	return c.oauth.AuthCodeURL(strconv.FormatInt(chatID, 10), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it for the
// chat named by state.
func (c *Connector) Exchange(ctx context.Context, code, state string) (int64, error) {
	chatID, err := strconv.ParseInt(state, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid state %q: %w", state, err)
	}
	if code == "" {
		return chatID, errors.New("missing authorization code")
	}

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return chatID, fmt.Errorf("failed to exchange code: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return chatID, fmt.Errorf("failed to encode token: %w", err)
	}
	if err := c.tokens.SaveToken(ctx, chatID, data); err != nil {
		return chatID, fmt.Errorf("failed to save token: %w", err)
	}

	c.cache.Remove(chatID)
	c.logger.Info("Calendar connected", "chat_id", chatID)
	return chatID, nil
}

// ForChat returns the chat's calendar, or ErrNotConnected.
func (c *Connector) ForChat(ctx context.Context, chatID int64) (Calendar, error) {
	if cal, ok := c.cache.Get(chatID); ok {
		return cal, nil
	}

	data, err := c.tokens.GetToken(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	// The client outlives this request.
	base := context.WithoutCancel(ctx)
	ts := &persistingTokenSource{
		base:   c.oauth.TokenSource(base, &tok),
		last:   tok.AccessToken,
		chatID: chatID,
		tokens: c.tokens,
		logger: c.logger,
	}
	svc, err := gcal.NewService(base, option.WithTokenSource(oauth2.ReuseTokenSource(&tok, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	cal := NewGoogle(svc, c.loc)
	c.cache.Add(chatID, cal)
	return cal, nil
}

// Disconnect deletes the chat's token and drops its cached client. A chat
// that was never connected returns ErrNotConnected.
func (c *Connector) Disconnect(ctx context.Context, chatID int64) error {
	c.cache.Remove(chatID)
	if err := c.tokens.DeleteToken(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotConnected
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	c.logger.Info("Calendar disconnected", "chat_id", chatID)
	return nil
}

func (c *Connector) ConnectedChatIDs(ctx context.Context) ([]int64, error) {
	return c.tokens.ConnectedChatIDs(ctx)
}

// persistingTokenSource saves every refreshed token.
type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   string
	chatID int64
	tokens TokenStore
	logger *slog.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	data, err := json.Marshal(tok)
	if err != nil {
		s.logger.Error("Failed to encode refreshed token", "chat_id", s.chatID, "error", err)
		return tok, nil
	}
	if err := s.tokens.SaveToken(context.Background(), s.chatID, data); err != nil {
		s.logger.Error("Failed to save refreshed token", "chat_id", s.chatID, "error", err)
	}
	return tok, nil
}
