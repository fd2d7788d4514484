package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hray3182/amaa-remind/internal/metrics"
)

// ErrAllProvidersFailed matches the error Generate returns when no provider
// produced text.
var ErrAllProvidersFailed = errors.New("all text generation providers failed")

var errEmptyResponse = errors.New("empty response")

// ProviderError is one failed attempt.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExhaustedError carries every attempt made before giving up.
type ExhaustedError struct {
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllProvidersFailed.Error() + ": no providers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		parts[i] = err.Error()
	}
	return ErrAllProvidersFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func (e *ExhaustedError) Unwrap() []error {
	return e.Attempts
}

// Result is generated text and the provider that produced it.
type Result struct {
	Text     string
	Provider string
}

// Generator tries its providers one at a time, in order, and returns the
// first non-empty answer.
type Generator struct {
	providers []Provider
	logger    *slog.Logger
}

func NewGenerator(logger *slog.Logger, providers ...Provider) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{providers: providers, logger: logger}
}

// Providers returns the provider names in attempt order.
func (g *Generator) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	var attempts []error
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, fmt.Errorf("generation cancelled: %w", err))
			break
		}

		text, err := p.Complete(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		metrics.ProviderAttempt(p.Name(), err)
		if err != nil {
			g.logger.Warn("Provider failed, falling back", "provider", p.Name(), "error", err)
			attempts = append(attempts, &ProviderError{Provider: p.Name(), Err: err})
			continue
		}

		g.logger.Debug("Provider answered", "provider", p.Name())
		return Result{Text: text, Provider: p.Name()}, nil
	}

	return Result{}, &ExhaustedError{Attempts: attempts}
}
