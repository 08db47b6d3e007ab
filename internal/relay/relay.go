// Package relay drives a provider's fragment sequence, truncates at the
// provider's stop marker, forwards fragments to the consumer as they
// arrive, and accumulates the full forwarded text.
package relay

import (
	"context"
	"iter"
	"strings"

	"PrettyChat/internal/provider"
)

// Relay relays one question through one provider. A Relay is single-use:
// Stream may be consumed once, after which Text holds exactly the bytes
// that were forwarded, concatenated in arrival order.
type Relay struct {
	provider provider.Provider
	question string
	acc      strings.Builder
}

// New creates a relay for one turn.
func New(p provider.Provider, question string) *Relay {
	return &Relay{provider: p, question: question}
}

// Stream returns the forwarded fragment sequence. The sequence is
// pull-driven: each upstream read happens only when the consumer asks for
// the next fragment, so a slow consumer backpressures the upstream instead
// of filling a buffer.
//
// Empty fragments are dropped. When the provider's stop marker first occurs
// inside a fragment, the fragment is cut at the marker, the cut piece is
// forwarded, and the sequence ends without reading further upstream.
func (r *Relay) Stream(ctx context.Context) iter.Seq[string] {
	stop := r.provider.StopMarker()

	return func(yield func(string) bool) {
		for fragment := range r.provider.Stream(ctx, r.question) {
			if fragment == "" {
				continue
			}

			if stop != "" {
				if idx := strings.Index(fragment, stop); idx >= 0 {
					truncated := fragment[:idx]
					if truncated != "" {
						r.acc.WriteString(truncated)
						yield(truncated)
					}
					return
				}
			}

			r.acc.WriteString(fragment)
			if !yield(fragment) {
				return
			}
		}
	}
}

// Text returns everything forwarded so far. After the sequence is exhausted
// it equals the complete client-visible output byte-for-byte.
func (r *Relay) Text() string {
	return r.acc.String()
}
