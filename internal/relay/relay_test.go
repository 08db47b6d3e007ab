package relay

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays a fixed fragment sequence.
type scriptedProvider struct {
	stop      string
	fragments []string
	requested int
}

func (p *scriptedProvider) Name() string                       { return "scripted" }
func (p *scriptedProvider) BuildPrompt(question string) string { return question }
func (p *scriptedProvider) StopMarker() string                 { return p.stop }

func (p *scriptedProvider) Stream(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range p.fragments {
			p.requested++
			if !yield(f) {
				return
			}
		}
	}
}

func collect(t *testing.T, r *Relay) []string {
	t.Helper()
	var out []string
	for fragment := range r.Stream(context.Background()) {
		out = append(out, fragment)
	}
	return out
}

func TestRelay_NoStopMarker_RelaysByteIdentically(t *testing.T) {
	p := &scriptedProvider{fragments: []string{"The quick ", "brown ", "fox", " jumps"}}
	r := New(p, "q")

	got := collect(t, r)

	assert.Equal(t, []string{"The quick ", "brown ", "fox", " jumps"}, got)
	assert.Equal(t, "The quick brown fox jumps", r.Text())
	assert.Equal(t, strings.Join(got, ""), r.Text())
}

func TestRelay_StopMarkerInsideFragment_TruncatesAndTerminates(t *testing.T) {
	p := &scriptedProvider{
		stop:      "\n",
		fragments: []string{"The", " sky\nExtra", "never", "requested"},
	}
	r := New(p, "q")

	got := collect(t, r)

	assert.Equal(t, []string{"The", " sky"}, got)
	assert.Equal(t, "The sky", r.Text())
	// Nothing past the truncated fragment is pulled from upstream.
	assert.Equal(t, 2, p.requested)
}

func TestRelay_StopMarkerAtFragmentStart_ForwardsNothingFurther(t *testing.T) {
	p := &scriptedProvider{
		stop:      "\n",
		fragments: []string{"answer.", "\ntrailing", "more"},
	}
	r := New(p, "q")

	got := collect(t, r)

	assert.Equal(t, []string{"answer."}, got)
	assert.Equal(t, "answer.", r.Text())
}

func TestRelay_MultiByteStopMarker(t *testing.T) {
	p := &scriptedProvider{
		stop:      "<END>",
		fragments: []string{"hello ", "world<END>tail"},
	}
	r := New(p, "q")

	got := collect(t, r)

	assert.Equal(t, []string{"hello ", "world"}, got)
	assert.Equal(t, "hello world", r.Text())
}

func TestRelay_EmptyFragmentsAreDropped(t *testing.T) {
	p := &scriptedProvider{fragments: []string{"", "a", "", "b", ""}}
	r := New(p, "q")

	got := collect(t, r)

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, "ab", r.Text())
}

func TestRelay_EmptyUpstream_TerminatesWithEmptyAccumulator(t *testing.T) {
	p := &scriptedProvider{}
	r := New(p, "q")

	got := collect(t, r)

	assert.Empty(t, got)
	assert.Equal(t, "", r.Text())
}

func TestRelay_ConsumerBreak_AccumulatorMatchesForwarded(t *testing.T) {
	p := &scriptedProvider{fragments: []string{"one ", "two ", "three "}}
	r := New(p, "q")

	var got []string
	for fragment := range r.Stream(context.Background()) {
		got = append(got, fragment)
		if len(got) == 2 {
			break
		}
	}

	require.Equal(t, []string{"one ", "two "}, got)
	// The accumulator never runs ahead of what the consumer saw.
	assert.Equal(t, "one two ", r.Text())
}
