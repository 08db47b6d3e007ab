package provider

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/config"
)

// ragChunkSize is the byte window for reading the unframed response body.
const ragChunkSize = 64

// ragRequest is the retrieval backend's request payload.
type ragRequest struct {
	Question string `json:"question"`
}

// RagProvider streams answers from the retrieval-augmented backend. The
// response body is raw text with no framing, delivered in fixed-size byte
// windows. Unlike the other variants, a mid-stream failure yields one final
// diagnostic fragment so the error text appears inline in the forwarded
// stream.
type RagProvider struct {
	url    string
	client *http.Client
	idle   time.Duration
	logger *slog.Logger
}

// NewRag creates a retrieval-augmented provider for the given endpoint.
func NewRag(url string, client *http.Client, idle time.Duration, logger *slog.Logger) *RagProvider {
	return &RagProvider{url: url, client: client, idle: idle, logger: logger}
}

// Name returns the variant name.
func (p *RagProvider) Name() string { return config.ModeRag }

// BuildPrompt returns the question unchanged; templating happens inside the
// retrieval backend.
func (p *RagProvider) BuildPrompt(question string) string { return question }

// StopMarker returns empty: the retrieval stream runs to its natural end.
func (p *RagProvider) StopMarker() string { return "" }

// Stream POSTs the question and yields the body in byte windows.
func (p *RagProvider) Stream(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		log := p.logger.With("component", "llm_rag", "session_id", ctxkeys.SessionIDFrom(ctx))
		log.Info("rag request", "question", question)

		body, cancel, err := postStream(ctx, p.client, p.url, ragRequest{Question: question}, p.idle)
		if err != nil {
			log.Error("rag request failed", "error", err)
			yield(fmt.Sprintf("[Error fetching RAG response: %v]", err))
			return
		}
		defer cancel()
		defer body.Close()

		log.Info("rag streaming started")

		var full strings.Builder
		buf := make([]byte, ragChunkSize)
		for {
			n, readErr := body.Read(buf)
			if n > 0 {
				chunk := string(buf[:n])
				full.WriteString(chunk)
				log.Info("rag chunk", "bytes", n)
				log.Debug("rag fragment", "text", chunk)
				if !yield(chunk) {
					return
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				log.Error("rag stream failed", "error", readErr)
				yield(fmt.Sprintf("[Error fetching RAG response: %v]", readErr))
				break
			}
		}

		log.Info("rag streaming finished", "response", full.String())
	}
}
