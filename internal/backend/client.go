// Package backend is the HTTP client for the civic intake backend: voice
// classification, complaint drafting and filing, helplines and schemes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/classify"
	"janai-go/internal/draft"
	"janai-go/internal/logger"
	"janai-go/internal/types"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, truncate(e.Body, maxBodyInError))
}

// maxBodyInError caps how much of a response body an error carries.
const maxBodyInError = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry

	initialInterval time.Duration
	maxRetryTime    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// WithRetry bounds the exponential backoff used for transient failures.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxRetryTime = maxElapsed
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		initialInterval: 500 * time.Millisecond,
		maxRetryTime:    20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Discard().Component("backend")
	}
	return c
}

// SubmitVoiceText implements classify.Remote.
func (c *Client) SubmitVoiceText(ctx context.Context, req classify.VoiceTextRequest) (classify.VoiceTextResponse, error) {
	var out classify.VoiceTextResponse
	if err := c.doJSON(ctx, "backend.voice", http.MethodPost, "/emergency/process-emergency", nil, req, &out); err != nil {
		return classify.VoiceTextResponse{}, err
	}
	return out, nil
}

type draftResponse struct {
	Draft     string          `json:"draft"`
	Authority types.Authority `json:"authority"`
	Error     string          `json:"error,omitempty"`
}

// GenerateDraft implements draft.Remote. An in-band error prefix in the
// draft text is reported as draft.StatusFailed.
func (c *Client) GenerateDraft(ctx context.Context, req types.DraftRequest) (draft.RemoteDraft, error) {
	var out draftResponse
	if err := c.doJSON(ctx, "backend.draft", http.MethodPost, "/complaint/generate-draft", nil, req, &out); err != nil {
		return draft.RemoteDraft{}, err
	}
	text := strings.TrimSpace(out.Draft)
	if strings.HasPrefix(text, draft.ErrorPrefix) || out.Error != "" {
		reason := strings.TrimSpace(strings.TrimPrefix(text, draft.ErrorPrefix))
		if reason == "" {
			reason = out.Error
		}
		return draft.RemoteDraft{Status: draft.StatusFailed, Reason: reason}, nil
	}
	return draft.RemoteDraft{Status: draft.StatusOK, Draft: out.Draft, Authority: out.Authority}, nil
}

// FileComplaint implements complaint.Backend. Filing creates a record, so
// it is sent once: a lost reply must not file a second complaint. The
// Idempotency-Key lets a backend that honours it drop replays.
func (c *Client) FileComplaint(ctx context.Context, req types.FileComplaintRequest) (types.FileComplaintResponse, error) {
	var out types.FileComplaintResponse
	err := c.do(ctx, call{
		op:     "backend.file",
		method: http.MethodPost,
		path:   "/complaint/file",
		body:   req,
		target: &out,
		header: http.Header{"Idempotency-Key": {uuid.New().String()}},
		once:   true,
	})
	if err != nil {
		return types.FileComplaintResponse{}, err
	}
	return out, nil
}

// ResolveComplaint implements complaint.Backend.
func (c *Client) ResolveComplaint(ctx context.Context, id string) error {
	body := map[string]string{"complaintId": id}
	return c.doJSON(ctx, "backend.resolve", http.MethodPost, "/complaint/resolve", nil, body, nil)
}

// GetComplaints implements complaint.Backend.
func (c *Client) GetComplaints(ctx context.Context, userID string) ([]types.Complaint, error) {
	var out struct {
		Complaints []types.Complaint `json:"complaints"`
	}
	q := url.Values{"userId": {userID}}
	if err := c.doJSON(ctx, "backend.status", http.MethodGet, "/complaint/status", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Complaints, nil
}

// Helplines returns the Central and State helplines for a state. A state
// the backend has no data for yields an empty list.
func (c *Client) Helplines(ctx context.Context, state string) ([]types.HelplineEntry, error) {
	var out struct {
		State     string                `json:"state"`
		Helplines []types.HelplineEntry `json:"helplines"`
	}
	q := url.Values{"state": {state}}
	err := c.doJSON(ctx, "backend.helplines", http.MethodGet, "/helpline", q, nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return []types.HelplineEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Helplines, nil
}

// Schemes returns the welfare schemes matching a citizen profile.
func (c *Client) Schemes(ctx context.Context, profile types.SchemeProfile) ([]types.Scheme, error) {
	var out struct {
		Schemes []types.Scheme `json:"schemes"`
		Total   int            `json:"total"`
	}
	if err := c.doJSON(ctx, "backend.schemes", http.MethodPost, "/schemes/find", nil, profile, &out); err != nil {
		return nil, err
	}
	return out.Schemes, nil
}

// call is one backend request. once disables retries for requests that
// are not safe to replay.
type call struct {
	op, method, path string
	query            url.Values
	body, target     any
	header           http.Header
	once             bool
}

// doJSON sends one request with retry. Transport failures and 5xx answers
// are retried; 4xx answers are permanent. target may be nil.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, target any) error {
	return c.do(ctx, call{op: op, method: method, path: path, query: query, body: body, target: target})
}

func (c *Client) do(ctx context.Context, rc call) error {
	op, method, path, target := rc.op, rc.method, rc.path, rc.target
	if c.baseURL == "" {
		return apperr.Transport(op, errors.New("backend url not configured"))
	}
	endpoint := c.baseURL + path
	if len(rc.query) > 0 {
		endpoint += "?" + rc.query.Encode()
	}
	var payload []byte
	if rc.body != nil {
		var err error
		if payload, err = json.Marshal(rc.body); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}
	log := c.log.WithFields(logrus.Fields{"op": op, "method": method, "path": path})

	var lastErr error
	attempt := 0
	operation := func() error {
		attempt++
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		for k, vs := range rc.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("attempt", attempt).Warn("backend request failed")
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
			log.WithField("http_status", resp.StatusCode).WithField("attempt", attempt).Warn("backend server error")
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
			return backoff.Permanent(lastErr)
		}
		if target == nil || len(bytes.TrimSpace(raw)) == 0 {
			lastErr = nil
			return nil
		}
		if err := json.Unmarshal(raw, target); err != nil {
			lastErr = fmt.Errorf("decode response: %w body=%s", err, truncate(string(raw), maxBodyInError))
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if !rc.once {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.initialInterval
		eb.MaxElapsedTime = c.maxRetryTime
		b = eb
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		var se *StatusError
		if errors.As(lastErr, &se) && se.Code < 500 {
			return &apperr.Error{Kind: apperr.ErrService, Op: op, Err: lastErr}
		}
		return apperr.Transport(op, lastErr)
	}
	log.WithField("attempts", attempt).Debug("backend request ok")
	return nil
}
