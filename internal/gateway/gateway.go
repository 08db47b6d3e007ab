// Package gateway is the entry point the HTTP layer talks to: it resolves
// the active provider, drives the relay, and commits every finished
// exchange to the session store.
package gateway

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/mode"
	"PrettyChat/internal/provider"
	"PrettyChat/internal/relay"
	"PrettyChat/internal/session"
)

// ErrEmptyPrompt reports a blank or whitespace-only prompt. It short-circuits
// before any provider or relay work: no turn is started.
var ErrEmptyPrompt = errors.New("empty prompt")

// ProviderSource resolves a mode name to a provider instance.
type ProviderSource interface {
	Provider(name string) provider.Provider
}

// Recorder archives finished exchanges. Implementations must be safe for
// concurrent use; recording happens off the request path.
type Recorder interface {
	Record(sessionID string, messages ...session.Message)
}

// Gateway wires the mode registry, session store, and providers together.
type Gateway struct {
	store     *session.Store
	modes     *mode.Registry
	providers ProviderSource
	recorder  Recorder
	logger    *slog.Logger
	tracer    trace.Tracer

	turnDuration metric.Float64Histogram
	fragments    metric.Int64Counter
}

// New creates a gateway. recorder may be nil to disable transcript
// archiving.
func New(store *session.Store, modes *mode.Registry, providers ProviderSource, recorder Recorder, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Gateway {
	g := &Gateway{
		store:     store,
		modes:     modes,
		providers: providers,
		recorder:  recorder,
		logger:    logger,
		tracer:    tracer,
	}

	var err error
	g.turnDuration, err = meter.Float64Histogram(
		"chat.turn.duration",
		metric.WithDescription("Duration of one relayed turn in milliseconds"),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", "error", err)
	}
	g.fragments, err = meter.Int64Counter(
		"chat.stream.fragments",
		metric.WithDescription("Fragments forwarded to clients"),
	)
	if err != nil {
		logger.Warn("failed to create fragment counter", "error", err)
	}

	return g
}

// Mode returns the currently active provider variant.
func (g *Gateway) Mode() string {
	return g.modes.Get()
}

// SelectMode switches the active provider variant for all subsequent
// requests and returns the active mode after the call (unchanged when the
// name is not a known variant). In-flight relays keep the provider they
// snapshotted at request start.
func (g *Gateway) SelectMode(ctx context.Context, name string) string {
	active := g.modes.Set(name)
	g.logger.Info("mode selected",
		"session_id", ctxkeys.SessionIDFrom(ctx), "requested", name, "mode", active)
	return active
}

// History returns the session's conversation so far.
func (g *Gateway) History(sessionID string) session.Conversation {
	return g.store.Get(sessionID)
}

// ClearHistory empties the session's conversation and returns the now-empty
// conversation.
func (g *Gateway) ClearHistory(ctx context.Context, sessionID string) session.Conversation {
	old := g.store.Clear(sessionID)
	g.logger.Info("chat history cleared",
		"session_id", sessionID, "discarded_messages", len(old))
	return g.store.Get(sessionID)
}

// SendMessage starts one conversational turn. The user message is appended
// to the conversation before relaying begins; the returned sequence yields
// the relayed fragments. Once the sequence ends, whether it ran to completion
// or the consumer stopped early, exactly one assistant message holding the
// accumulated text is appended, empty content included.
//
// The active provider is snapshotted here, so a concurrent mode change never
// alters this turn.
func (g *Gateway) SendMessage(ctx context.Context, sessionID, prompt string) (iter.Seq[string], error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	active := g.modes.Get()
	p := g.providers.Provider(active)

	g.logger.Info("user message", "session_id", sessionID, "mode", active, "prompt", prompt)

	userMsg := session.Message{Role: session.RoleUser, Content: prompt, Timestamp: time.Now()}
	g.store.Append(sessionID, userMsg)

	rly := relay.New(p, prompt)

	seq := func(yield func(string) bool) {
		ctx := ctxkeys.WithSessionID(ctx, sessionID)
		ctx, span := g.tracer.Start(ctx, active+"_stream")
		defer span.End()

		start := time.Now()
		forwarded := 0

		for fragment := range rly.Stream(ctx) {
			forwarded++
			if !yield(fragment) {
				break
			}
		}

		if g.fragments != nil {
			g.fragments.Add(ctx, int64(forwarded))
		}
		if g.turnDuration != nil {
			g.turnDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
		}

		// A partial exchange is committed too: every user turn is closed by
		// exactly one assistant message, even on disconnect or upstream
		// failure.
		assistantMsg := session.Message{
			Role:      session.RoleAssistant,
			Content:   rly.Text(),
			Timestamp: time.Now(),
		}
		g.store.Append(sessionID, assistantMsg)

		g.logger.Info("assistant response",
			"session_id", sessionID, "mode", active,
			"fragments", forwarded, "response", assistantMsg.Content)

		if g.recorder != nil {
			go g.recorder.Record(sessionID, userMsg, assistantMsg)
		}
	}

	return seq, nil
}
