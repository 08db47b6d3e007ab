// Package provider implements the interchangeable text-generation backends.
// Each variant turns a question into a backend-specific prompt and a finite,
// pull-driven sequence of text fragments. Sequences are not restartable: a
// new Stream call issues a new upstream request.
package provider

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"

	"PrettyChat/internal/config"
)

// ErrBackendUnavailable marks a connection or non-success status failure.
// It is logged, never surfaced to the client as a protocol error: the
// fragment sequence simply ends.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrMalformedChunk marks a data frame that could not be parsed as the
// expected payload. Recoverable: the chunk is logged and skipped.
var ErrMalformedChunk = errors.New("malformed chunk")

// Provider is the uniform streaming contract over backend variants.
type Provider interface {
	// Name returns the variant name, also used as the log component tag.
	Name() string

	// BuildPrompt formats the raw question into the backend's instruction
	// template.
	BuildPrompt(question string) string

	// StopMarker returns the backend's designated stop sentinel. The relay
	// truncates at its first occurrence. Empty means no early stop.
	StopMarker() string

	// Stream issues an upstream request for the question and yields text
	// fragments as they arrive. Upstream failures end the sequence early
	// rather than raising past already-yielded fragments.
	Stream(ctx context.Context, question string) iter.Seq[string]
}

// Factory builds provider instances from configuration. Each request
// snapshots one instance at start, so a concurrent mode change never
// alters an in-flight stream.
type Factory struct {
	cfg    config.Config
	logger *slog.Logger
	client *http.Client
}

// NewFactory creates a provider factory. The shared HTTP client carries no
// global timeout: streamed bodies outlive any sane request deadline, and
// cancellation runs through the request context and the idle-read watchdog.
func NewFactory(cfg config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{},
	}
}

// Provider returns the variant for the given mode name. Unknown names fall
// back to the mock variant, mirroring the registry's fixed set.
func (f *Factory) Provider(name string) Provider {
	switch name {
	case config.ModeRag:
		return NewRag(f.cfg.RagURL, f.client, f.cfg.IdleReadTimeout, f.logger)
	case config.ModeTinyLlama:
		return NewCompletion(config.ModeTinyLlama, tinyLlamaTemplate, f.cfg.TinyLlama, f.client, f.cfg.IdleReadTimeout, f.logger)
	case config.ModeLlama3:
		return NewCompletion(config.ModeLlama3, llama3Template, f.cfg.Llama3, f.client, f.cfg.IdleReadTimeout, f.logger)
	default:
		return NewMock(f.cfg.MockDelay, f.logger)
	}
}
