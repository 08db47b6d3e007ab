package provider

import (
	"context"
	"iter"
	"log/slog"
	"time"
	"unicode"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/config"
)

// MockProvider emits a deterministic echo with an artificial pacing delay.
// It needs no network and is used to exercise the relay without live
// backends.
type MockProvider struct {
	delay  time.Duration
	logger *slog.Logger
}

// NewMock creates a mock provider pacing fragments by delay (zero disables
// pacing).
func NewMock(delay time.Duration, logger *slog.Logger) *MockProvider {
	return &MockProvider{delay: delay, logger: logger}
}

// Name returns the variant name.
func (p *MockProvider) Name() string { return config.ModeMock }

// BuildPrompt returns the question unchanged; the mock applies no template.
func (p *MockProvider) BuildPrompt(question string) string { return question }

// StopMarker returns empty: the mock stream is never truncated.
func (p *MockProvider) StopMarker() string { return "" }

// Stream yields the canned answer as whitespace-delimited tokens, each
// fragment carrying the whitespace that follows it so the concatenation
// reproduces the answer byte-for-byte.
func (p *MockProvider) Stream(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		log := p.logger.With("component", "llm_mock", "session_id", ctxkeys.SessionIDFrom(ctx))
		log.Info("mock prompt received", "chars", len(question), "prompt", question)

		answer := "[Mock] You said: " + question + "\nThis is a mock response.\n"

		for _, fragment := range splitTokens(answer) {
			if p.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.delay):
				}
			} else if ctx.Err() != nil {
				return
			}
			log.Debug("mock fragment", "text", fragment)
			if !yield(fragment) {
				return
			}
		}
		log.Info("mock response complete", "response", answer)
	}
}

// splitTokens cuts s into whitespace-delimited tokens, each token carrying
// the run of whitespace that follows it in s, so joining the tokens yields
// s unchanged. A leading whitespace run becomes a fragment of its own.
func splitTokens(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			tokens = append(tokens, s[start:i])
			start = i
			inSpace = false
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
