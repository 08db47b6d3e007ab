package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/config"
)

// completionStop is the sentinel ending generation for completion backends.
const completionStop = "\n"

// dataPrefix frames each payload line of the completion stream.
const dataPrefix = "data: "

// doneMarker is the literal line terminating the completion stream.
const doneMarker = "[DONE]"

// maxLineSize bounds a single streamed line. The default bufio.Scanner
// limit is 64 KiB, which can be too small for long completions.
const maxLineSize = 1 * 1024 * 1024

const tinyLlamaTemplate = "\nYou are a helpful assistant.\n" +
	"Answer the following question in exactly one sentence only. " +
	"Your sentence should be concise but informative, providing key context if relevant. " +
	"Do not describe yourself, do not repeat the question, do not ask questions, and do not write more than one period. " +
	"After the first period, stop writing immediately.\n\n" +
	"Question: %s\n" +
	"Answer (one informative sentence only):"

const llama3Template = "SYSTEM: You are a helpful assistant.\n" +
	"SYSTEM: Answer questions in exactly one sentence. " +
	"Your answer should be concise but informative, providing key context if relevant. " +
	"Do not describe yourself, do not repeat phrases, do not add extra information beyond the topic, and do not ask questions. " +
	"End your answer after the first period.\n\n" +
	"USER: %s\n" +
	"ASSISTANT: (one informative sentence only)"

// completionRequest is the request body for llama.cpp-style /v1/completions.
type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	ContextSize int     `json:"n_ctx"`
	Temperature float64 `json:"temperature"`
	Stop        string  `json:"stop"`
	Stream      bool    `json:"stream"`
}

// completionChunk is one parsed "data:" payload from the completion stream.
type completionChunk struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// CompletionProvider streams from a local-model completion backend. Both the
// tinyllama and llama3_1_8b variants share this implementation; they differ
// in endpoint, model parameters, and instruction template.
type CompletionProvider struct {
	name     string
	template string
	cfg      config.CompletionConfig
	client   *http.Client
	idle     time.Duration
	logger   *slog.Logger
}

// NewCompletion creates a completion provider for one backend variant.
func NewCompletion(name, template string, cfg config.CompletionConfig, client *http.Client, idle time.Duration, logger *slog.Logger) *CompletionProvider {
	return &CompletionProvider{
		name:     name,
		template: template,
		cfg:      cfg,
		client:   client,
		idle:     idle,
		logger:   logger,
	}
}

// Name returns the variant name.
func (p *CompletionProvider) Name() string { return p.name }

// BuildPrompt wraps the question in the variant's one-sentence instruction
// template.
func (p *CompletionProvider) BuildPrompt(question string) string {
	return fmt.Sprintf(p.template, question)
}

// StopMarker returns the newline sentinel; the relay truncates generation at
// its first occurrence.
func (p *CompletionProvider) StopMarker() string { return completionStop }

// Stream sends the templated prompt with streaming enabled and yields the
// text of each streamed choice. Empty lines and the [DONE] marker are
// skipped; unparsable data frames are logged and skipped.
func (p *CompletionProvider) Stream(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		log := p.logger.With("component", "llm_"+p.name, "session_id", ctxkeys.SessionIDFrom(ctx))

		prompt := p.BuildPrompt(question)
		log.Info("sending full prompt", "chars", len(prompt), "prompt", prompt)

		payload := completionRequest{
			Model:       p.cfg.Model,
			Prompt:      prompt,
			MaxTokens:   p.cfg.MaxTokens,
			ContextSize: p.cfg.ContextSize,
			Temperature: p.cfg.Temperature,
			Stop:        completionStop,
			Stream:      true,
		}

		body, cancel, err := postStream(ctx, p.client, p.cfg.URL, payload, p.idle)
		if err != nil {
			log.Error("request failed", "error", err)
			return
		}
		defer cancel()
		defer body.Close()

		var full strings.Builder
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.TrimSpace(line) == doneMarker {
				continue
			}
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}

			var chunk completionChunk
			if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &chunk); err != nil {
				log.Warn("could not parse chunk", "payload", line[len(dataPrefix):],
					"error", fmt.Errorf("%w: %v", ErrMalformedChunk, err))
				continue
			}

			for _, choice := range chunk.Choices {
				if choice.Text == "" {
					continue
				}
				full.WriteString(choice.Text)
				log.Info("chunk", "text", choice.Text)
				if !yield(choice.Text) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			// Mid-stream failure; whatever was yielded stands as a partial
			// completion.
			log.Error("stream read failed", "error", err)
		}

		if full.Len() > 0 {
			log.Info("full assistant response", "response", full.String())
		}
	}
}
