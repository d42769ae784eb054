package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings resolved from the environment.
type Config struct {
	Port       string
	Backend    BackendConfig
	LLM        LLMConfig
	Transcribe TranscribeConfig
	Directory  DirectoryConfig
	Draft      DraftConfig
	Capture    CaptureConfig
}

type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetryTime time.Duration
	// MaxCachedUsers bounds the per-user complaint lists held in memory.
	MaxCachedUsers int
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether the LLM adapter should replace the backend for
// classification and drafting.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

type TranscribeConfig struct {
	BaseURL string
	Mock    bool
}

type DirectoryConfig struct {
	Path string
}

type DraftConfig struct {
	Seed uint64
}

type CaptureConfig struct {
	Continuous     bool
	AllowedOrigins []string
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	cfg := Config{
		Port: envOr("PORT", "8080"),
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/"),
			Timeout:        time.Duration(envOrInt("BACKEND_TIMEOUT_SEC", 12)) * time.Second,
			MaxRetryTime:   time.Duration(envOrInt("BACKEND_MAX_RETRY_SEC", 20)) * time.Second,
			MaxCachedUsers: envOrInt("MAX_CACHED_USERS", 1024),
		},
		LLM: LLMConfig{
			APIKey:  strings.TrimSpace(os.Getenv("LLM_API_KEY")),
			BaseURL: strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
			Model:   envOr("LLM_MODEL", "gpt-4o-mini"),
			Timeout: time.Duration(envOrInt("LLM_TIMEOUT_SEC", 25)) * time.Second,
		},
		Transcribe: TranscribeConfig{
			BaseURL: strings.TrimSpace(os.Getenv("TRANSCRIBE_URL")),
			Mock:    envOrBool("USE_MOCK_TRANSCRIBE", false),
		},
		Directory: DirectoryConfig{Path: strings.TrimSpace(os.Getenv("DIRECTORY_PATH"))},
		Capture: CaptureConfig{
			Continuous:     envOrBool("CAPTURE_CONTINUOUS", true),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		},
	}

	var errs []error
	if raw := strings.TrimSpace(os.Getenv("DRAFT_SEED")); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DRAFT_SEED %q is not an unsigned integer", raw))
		}
		cfg.Draft.Seed = seed
	}
	if cfg.Backend.BaseURL != "" {
		if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("BACKEND_URL %q is not an absolute URL", cfg.Backend.BaseURL))
		}
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not numeric", cfg.Port))
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 12 * time.Second
	}
	if cfg.Backend.MaxCachedUsers <= 0 {
		cfg.Backend.MaxCachedUsers = 1024
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 25 * time.Second
	}

	return cfg, errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
