package gateway

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"PrettyChat/internal/config"
	"PrettyChat/internal/mode"
	"PrettyChat/internal/provider"
	"PrettyChat/internal/session"
)

// scriptedProvider replays fixed fragments under a chosen stop marker.
type scriptedProvider struct {
	name      string
	stop      string
	fragments []string
}

func (p *scriptedProvider) Name() string                       { return p.name }
func (p *scriptedProvider) BuildPrompt(question string) string { return question }
func (p *scriptedProvider) StopMarker() string                 { return p.stop }

func (p *scriptedProvider) Stream(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range p.fragments {
			if !yield(f) {
				return
			}
		}
	}
}

// fixedSource hands out the same provider regardless of mode.
type fixedSource struct{ p provider.Provider }

func (s fixedSource) Provider(name string) provider.Provider { return s.p }

type recordedCall struct {
	sessionID string
	messages  []session.Message
}

// syncRecorder captures Record calls for assertion.
type syncRecorder struct {
	calls chan recordedCall
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{calls: make(chan recordedCall, 4)}
}

func (r *syncRecorder) Record(sessionID string, messages ...session.Message) {
	r.calls <- recordedCall{sessionID: sessionID, messages: messages}
}

func newTestGateway(p provider.Provider, rec Recorder) (*Gateway, *session.Store, *mode.Registry) {
	store := session.NewStore()
	registry := mode.NewRegistry(config.ModeMock)
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	g := New(store, registry, fixedSource{p: p}, rec, logger,
		tnoop.NewTracerProvider().Tracer("test"),
		mnoop.NewMeterProvider().Meter("test"))
	return g, store, registry
}

func drain(t *testing.T, seq iter.Seq[string]) []string {
	t.Helper()
	var out []string
	for fragment := range seq {
		out = append(out, fragment)
	}
	return out
}

func TestGateway_SendMessage_CommitsUserThenAssistant(t *testing.T) {
	p := &scriptedProvider{name: "scripted", fragments: []string{"hello ", "world"}}
	g, store, _ := newTestGateway(p, nil)

	seq, err := g.SendMessage(context.Background(), "s1", "greet me")
	require.NoError(t, err)

	got := drain(t, seq)
	assert.Equal(t, []string{"hello ", "world"}, got)

	conv := store.Get("s1")
	require.Len(t, conv, 2)
	assert.Equal(t, session.RoleUser, conv[0].Role)
	assert.Equal(t, "greet me", conv[0].Content)
	assert.Equal(t, session.RoleAssistant, conv[1].Role)
	assert.Equal(t, "hello world", conv[1].Content)
}

func TestGateway_SendMessage_EmptyPromptShortCircuits(t *testing.T) {
	p := &scriptedProvider{name: "scripted", fragments: []string{"never"}}
	g, store, _ := newTestGateway(p, nil)

	_, err := g.SendMessage(context.Background(), "s1", "   \t\n  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, store.Get("s1"))
}

func TestGateway_SendMessage_EmptyUpstreamStillCommitsAssistant(t *testing.T) {
	p := &scriptedProvider{name: "scripted"}
	g, store, _ := newTestGateway(p, nil)

	seq, err := g.SendMessage(context.Background(), "s1", "anyone there?")
	require.NoError(t, err)
	assert.Empty(t, drain(t, seq))

	conv := store.Get("s1")
	require.Len(t, conv, 2)
	assert.Equal(t, session.RoleAssistant, conv[1].Role)
	assert.Equal(t, "", conv[1].Content)
}

func TestGateway_SendMessage_ConsumerBreakCommitsPartial(t *testing.T) {
	p := &scriptedProvider{name: "scripted", fragments: []string{"one ", "two ", "three "}}
	g, store, _ := newTestGateway(p, nil)

	seq, err := g.SendMessage(context.Background(), "s1", "count")
	require.NoError(t, err)

	for fragment := range seq {
		if fragment == "one " {
			break
		}
	}

	conv := store.Get("s1")
	require.Len(t, conv, 2)
	assert.Equal(t, "one ", conv[1].Content)
}

func TestGateway_SendMessage_StopMarkerTruncation(t *testing.T) {
	p := &scriptedProvider{
		name:      "scripted",
		stop:      "\n",
		fragments: []string{"The", " sky\nExtra"},
	}
	g, store, _ := newTestGateway(p, nil)

	seq, err := g.SendMessage(context.Background(), "s1", "what is above?")
	require.NoError(t, err)

	assert.Equal(t, []string{"The", " sky"}, drain(t, seq))
	assert.Equal(t, "The sky", store.Get("s1")[1].Content)
}

func TestGateway_SendMessage_MockHiScenario(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	g, store, _ := newTestGateway(provider.NewMock(0, logger), nil)

	seq, err := g.SendMessage(context.Background(), "s1", "hi")
	require.NoError(t, err)

	got := drain(t, seq)
	assert.Equal(t, []string{"[Mock] ", "You ", "said: ", "hi\n", "This ", "is ", "a ", "mock ", "response.\n"}, got)

	conv := store.Get("s1")
	require.Len(t, conv, 2)
	assert.Equal(t, "[Mock] You said: hi\nThis is a mock response.\n", conv[1].Content)
}

func TestGateway_SendMessage_RecordsTranscript(t *testing.T) {
	p := &scriptedProvider{name: "scripted", fragments: []string{"archived"}}
	rec := newSyncRecorder()
	g, _, _ := newTestGateway(p, rec)

	seq, err := g.SendMessage(context.Background(), "s9", "keep this")
	require.NoError(t, err)
	drain(t, seq)

	select {
	case call := <-rec.calls:
		assert.Equal(t, "s9", call.sessionID)
		require.Len(t, call.messages, 2)
		assert.Equal(t, "keep this", call.messages[0].Content)
		assert.Equal(t, "archived", call.messages[1].Content)
	case <-time.After(2 * time.Second):
		t.Fatal("transcript recorder was never called")
	}
}

func TestGateway_SelectMode_RejectsUnknown(t *testing.T) {
	p := &scriptedProvider{name: "scripted"}
	g, _, _ := newTestGateway(p, nil)

	assert.Equal(t, config.ModeRag, g.SelectMode(context.Background(), config.ModeRag))
	assert.Equal(t, config.ModeRag, g.SelectMode(context.Background(), "unknown-model"))
	assert.Equal(t, config.ModeRag, g.Mode())
}

func TestGateway_ModeChangeDoesNotAffectInFlightTurn(t *testing.T) {
	store := session.NewStore()
	registry := mode.NewRegistry(config.ModeMock)
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))

	// Source that resolves per call, like the real factory.
	mockP := &scriptedProvider{name: "first", fragments: []string{"from first"}}
	g := New(store, registry, fixedSource{p: mockP}, nil, logger,
		tnoop.NewTracerProvider().Tracer("test"),
		mnoop.NewMeterProvider().Meter("test"))

	seq, err := g.SendMessage(context.Background(), "s1", "q")
	require.NoError(t, err)

	// Switching modes mid-flight must not change the snapshotted provider.
	g.SelectMode(context.Background(), config.ModeLlama3)

	assert.Equal(t, []string{"from first"}, drain(t, seq))
}

func TestGateway_ClearHistory(t *testing.T) {
	p := &scriptedProvider{name: "scripted", fragments: []string{"x"}}
	g, store, _ := newTestGateway(p, nil)

	seq, err := g.SendMessage(context.Background(), "s1", "q")
	require.NoError(t, err)
	drain(t, seq)

	cleared := g.ClearHistory(context.Background(), "s1")
	assert.Empty(t, cleared)
	assert.Empty(t, store.Get("s1"))
	assert.Empty(t, g.History("s1"))
}
