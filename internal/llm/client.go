// Package llm answers classification and drafting requests with a chat
// completion model behind any OpenAI-compatible endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/classify"
	"janai-go/internal/draft"
	"janai-go/internal/language"
	"janai-go/internal/logger"
	"janai-go/internal/types"
)

// Client implements classify.Remote and draft.Remote.
type Client struct {
	client oai.Client
	model  string
	reg    *language.Registry
	log    *logrus.Entry

	initialInterval time.Duration
	maxRetryTime    time.Duration
}

type config struct {
	baseURL         string
	timeout         time.Duration
	log             *logrus.Entry
	reg             *language.Registry
	initialInterval time.Duration
	maxRetryTime    time.Duration
}

type Option func(*config)

func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *config) { c.log = log }
}

func WithRegistry(reg *language.Registry) Option {
	return func(c *config) { c.reg = reg }
}

func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *config) {
		c.initialInterval = initial
		c.maxRetryTime = maxElapsed
	}
}

func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key must not be empty")
	}
	if model == "" {
		return nil, errors.New("llm: model must not be empty")
	}
	cfg := &config{
		timeout:         25 * time.Second,
		initialInterval: 500 * time.Millisecond,
		maxRetryTime:    45 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}

	// Retries are driven by backoff below, not by the SDK.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	c := &Client{
		client:          oai.NewClient(reqOpts...),
		model:           model,
		reg:             cfg.reg,
		log:             cfg.log,
		initialInterval: cfg.initialInterval,
		maxRetryTime:    cfg.maxRetryTime,
	}
	if c.reg == nil {
		c.reg = language.Default()
	}
	if c.log == nil {
		c.log = logger.Discard().Component("llm")
	}
	return c, nil
}

// SubmitVoiceText implements classify.Remote.
func (c *Client) SubmitVoiceText(ctx context.Context, req classify.VoiceTextRequest) (classify.VoiceTextResponse, error) {
	var out classify.VoiceTextResponse
	prompt := classifyPrompt(req.Text, c.reg.DisplayName(req.InputLanguage), req.Region)
	if err := c.complete(ctx, "llm.classify", classifySystem, prompt, &out); err != nil {
		return classify.VoiceTextResponse{}, err
	}
	out.Success = len(out.HelplineNumbers) > 0
	if !out.Success {
		out.Message = "model returned no helplines"
	}
	return out, nil
}

// GenerateDraft implements draft.Remote. The authority is derived from the
// category rather than trusted from model output.
func (c *Client) GenerateDraft(ctx context.Context, req types.DraftRequest) (draft.RemoteDraft, error) {
	var out struct {
		Draft string `json:"draft"`
	}
	if err := c.complete(ctx, "llm.draft", draftSystem, draftPrompt(req), &out); err != nil {
		return draft.RemoteDraft{}, err
	}
	text := strings.TrimSpace(out.Draft)
	if text == "" || strings.HasPrefix(text, draft.ErrorPrefix) {
		return draft.RemoteDraft{Status: draft.StatusFailed, Reason: "model returned no draft"}, nil
	}
	return draft.RemoteDraft{
		Status:    draft.StatusOK,
		Draft:     text,
		Authority: draft.AuthorityFor(req.Category, 10000000+rand.IntN(90000000)),
	}, nil
}

// complete runs one chat completion with retry and decodes the first JSON
// object of the reply into target. 4xx answers are not retried.
func (c *Client) complete(ctx context.Context, op, system, user string, target any) error {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: param.NewOpt(0.2),
	}
	log := c.log.WithFields(logrus.Fields{"op": op, "model": c.model})

	var lastErr error
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			var apiErr *oai.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			log.WithError(err).WithField("attempt", attempt).Warn("llm request failed")
			return err
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("empty choices in response")
			return lastErr
		}
		content := resp.Choices[0].Message.Content
		raw := extractJSON(content)
		if raw == "" {
			lastErr = errors.New("no JSON found in LLM output")
			log.WithField("attempt", attempt).Debug("llm raw:\n" + content)
			return lastErr
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			lastErr = fmt.Errorf("decode LLM JSON: %w", err)
			return lastErr
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxRetryTime
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return apperr.Transport(op, lastErr)
	}
	log.WithField("attempts", attempt).Debug("llm completion parsed")
	return nil
}
