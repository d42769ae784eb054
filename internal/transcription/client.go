// Package transcription converts a recorded voice note into text through a
// batch transcription service: publish the recording, poll until it is
// done, then download the transcript.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/logger"
)

// MockTranscript is returned by a client in mock mode.
const MockTranscript = "kisi ne aag lagai hai, madad chahiye"

type PublishResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		MediaID          string `json:"MediaId"`
		Status           string `json:"Status"`
		LanguageID       int    `json:"LanguageId"`
		TranscriptionURL string `json:"TranscriptionURL"`
		WordsCount       int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueID string `json:"UniqueId,omitempty"`
}

type StatusResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		AudioURL             string `json:"AudioURL"`
		LanguageID           int    `json:"LanguageId"`
		Status               string `json:"Status"`
		TranscriptionTextURL string `json:"TranscriptionTextURL"`
		WordsCount           int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueID string `json:"UniqueId,omitempty"`
}

type Client struct {
	host       string
	mock       bool
	httpClient *http.Client
	log        *logrus.Entry

	pollInterval time.Duration
	maxPolls     int
	maxRetryTime time.Duration
}

type Option func(*Client)

func WithMock(on bool) Option { return func(c *Client) { c.mock = on } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithLogger(log *logrus.Entry) Option { return func(c *Client) { c.log = log } }

// WithPolling sets how often and how many times job status is checked.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxPolls = maxPolls
	}
}

func New(host string, opts ...Option) *Client {
	c := &Client{
		host:         strings.TrimRight(host, "/"),
		httpClient:   &http.Client{Timeout: 12 * time.Second},
		pollInterval: 1500 * time.Millisecond,
		maxPolls:     40,
		maxRetryTime: 12 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Discard().Component("transcription")
	}
	return c
}

// Enabled reports whether Transcribe can produce text.
func (c *Client) Enabled() bool { return c.mock || c.host != "" }

// Transcribe returns the text spoken in the recording at recordingURL.
func (c *Client) Transcribe(ctx context.Context, recordingURL, languageCode string) (string, error) {
	const op = "transcription.transcribe"
	if c.mock {
		return MockTranscript, nil
	}
	if c.host == "" {
		return "", apperr.Capability(op, "TRANSCRIBE_URL not set")
	}
	if strings.TrimSpace(recordingURL) == "" {
		return "", apperr.Input(op, "recording url is required")
	}
	log := c.log.WithFields(logrus.Fields{"recording_url": recordingURL, "language": languageCode})
	log.Info("starting transcription")

	mediaID, existingURL, err := c.publish(ctx, recordingURL, languageCode)
	if err != nil {
		return "", apperr.Transport(op, err)
	}
	if existingURL != "" {
		log.WithField("existing_url", existingURL).Info("transcription already exists, downloading text")
		return c.download(ctx, existingURL)
	}
	finalURL, err := c.poll(ctx, mediaID, log)
	if err != nil {
		return "", err
	}
	log.WithField("final_url", finalURL).Info("download final transcript")
	return c.download(ctx, finalURL)
}

func (c *Client) publish(ctx context.Context, recordingURL, languageCode string) (string, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	_ = w.WriteField("callRecordingLink", recordingURL)
	if languageCode != "" {
		_ = w.WriteField("language", languageCode)
	}
	_ = w.Close()

	var resp PublishResponse
	err := c.doJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/transcribe", bytes.NewReader(b.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}, &resp)
	if err != nil {
		return "", "", err
	}
	if resp.Code != 200 {
		return "", "", fmt.Errorf("transcribe publish error: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.TranscriptionURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return "", resp.Data.TranscriptionURL, nil
	}
	return resp.Data.MediaID, "", nil
}

func (c *Client) poll(ctx context.Context, mediaID string, log *logrus.Entry) (string, error) {
	const op = "transcription.poll"
	u, err := url.Parse(c.host + "/getstatus")
	if err != nil {
		return "", apperr.Transport(op, err)
	}
	q := u.Query()
	q.Set("mediaId", mediaID)
	u.RawQuery = q.Encode()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", apperr.Transport(op, ctx.Err())
		case <-ticker.C:
		}

		var s StatusResponse
		err := c.doJSON(ctx, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		}, &s)
		if err != nil {
			log.WithError(err).Warn("polling failed")
			continue
		}
		log.WithFields(logrus.Fields{"media_id": mediaID, "status": s.Data.Status}).Debug("polling transcription")

		switch s.Data.Status {
		case "Success":
			return s.Data.TranscriptionTextURL, nil
		case "Queued", "Processing":
			continue
		case "Failed":
			return "", apperr.Service(op, "transcription failed: %s", s.Reason)
		}
	}
	return "", apperr.Transport(op, errors.New("transcription timeout"))
}

func (c *Client) download(ctx context.Context, textURL string) (string, error) {
	const op = "transcription.download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, textURL, nil)
	if err != nil {
		return "", apperr.Transport(op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Transport(op, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", apperr.Transport(op, fmt.Errorf("download failed: %s", string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

// doJSON retries transport failures and 5xx answers. newReq is called per
// attempt so request bodies are fresh.
func (c *Client) doJSON(ctx context.Context, newReq func() (*http.Request, error), target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetryTime
	var lastErr error
	op := func() error {
		req, err := newReq()
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", string(body))
			return lastErr
		}
		if len(body) == 0 {
			lastErr = errors.New("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return lastErr
	}
	return nil
}
