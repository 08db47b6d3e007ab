package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ModeMock      = "mock"
	ModeRag       = "rag"
	ModeTinyLlama = "tinyllama"
	ModeLlama3    = "llama3_1_8b"
)

// Modes is the fixed set of selectable provider variants.
var Modes = []string{ModeMock, ModeRag, ModeTinyLlama, ModeLlama3}

// ValidMode reports whether name is one of the known provider variants.
func ValidMode(name string) bool {
	for _, m := range Modes {
		if m == name {
			return true
		}
	}
	return false
}

// CompletionConfig holds parameters for one llama.cpp-style completion backend.
type CompletionConfig struct {
	URL         string  `toml:"url"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	ContextSize int     `toml:"n_ctx"`
	Temperature float64 `toml:"temperature"`
}

// Config holds application configuration
type Config struct {
	ListenAddr  string `toml:"listen_addr"`
	DefaultMode string `toml:"default_mode"`
	Debug       bool   `toml:"debug"`

	LogDir       string `toml:"log_dir"`
	TranscriptDB string `toml:"transcript_db"`

	// Upstream backends
	RagURL    string           `toml:"rag_url"`
	TinyLlama CompletionConfig `toml:"tinyllama"`
	Llama3    CompletionConfig `toml:"llama3_1_8b"`

	// MockDelay paces the mock provider's fragments; zero disables pacing.
	MockDelay time.Duration `toml:"-"`
	// IdleReadTimeout aborts an upstream stream when no chunk arrives
	// within the window; zero disables the timeout.
	IdleReadTimeout time.Duration `toml:"-"`

	MockDelayMS       int `toml:"mock_delay_ms"`
	IdleReadTimeoutMS int `toml:"idle_read_timeout_ms"`
}

// Default returns the configuration used when no file or env overrides exist.
// All values are safe for a local run with no backends installed (mock mode).
func Default() Config {
	return Config{
		ListenAddr:   "0.0.0.0:5010",
		DefaultMode:  ModeMock,
		LogDir:       "logs",
		TranscriptDB: "prettychat.db",
		RagURL:       "http://ai-rag-01:9000/ask_streamed",
		TinyLlama: CompletionConfig{
			URL:         "http://ai-llm-01:8081/v1/completions",
			Model:       "tinylama-rust-q4_k_m.gguf",
			MaxTokens:   250,
			ContextSize: 2048,
			Temperature: 0.1,
		},
		Llama3: CompletionConfig{
			URL:         "http://ai-llm-01:8082/v1/completions",
			Model:       "llama-3.1-8b-instruct.Q4_K_M.gguf",
			MaxTokens:   450,
			ContextSize: 2048,
			Temperature: 0.1,
		},
		MockDelayMS:       30,
		IdleReadTimeoutMS: 0,
	}
}

// Load builds the configuration from defaults, an optional TOML file, and
// environment variable overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.ListenAddr = envOr("PRETTYCHAT_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DefaultMode = envOr("PRETTYCHAT_DEFAULT_MODE", cfg.DefaultMode)
	cfg.LogDir = envOr("PRETTYCHAT_LOG_DIR", cfg.LogDir)
	cfg.TranscriptDB = envOr("PRETTYCHAT_TRANSCRIPT_DB", cfg.TranscriptDB)
	cfg.RagURL = envOr("PRETTYCHAT_RAG_URL", cfg.RagURL)
	cfg.TinyLlama.URL = envOr("PRETTYCHAT_TINYLLAMA_URL", cfg.TinyLlama.URL)
	cfg.Llama3.URL = envOr("PRETTYCHAT_LLAMA3_URL", cfg.Llama3.URL)
	cfg.MockDelayMS = envOrInt("PRETTYCHAT_MOCK_DELAY_MS", cfg.MockDelayMS)
	cfg.IdleReadTimeoutMS = envOrInt("PRETTYCHAT_IDLE_READ_TIMEOUT_MS", cfg.IdleReadTimeoutMS)

	if !ValidMode(cfg.DefaultMode) {
		return cfg, fmt.Errorf("unknown default mode: %s", cfg.DefaultMode)
	}

	cfg.MockDelay = time.Duration(cfg.MockDelayMS) * time.Millisecond
	cfg.IdleReadTimeout = time.Duration(cfg.IdleReadTimeoutMS) * time.Millisecond

	return cfg, nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
