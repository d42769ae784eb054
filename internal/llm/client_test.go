package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janai-go/internal/apperr"
	"janai-go/internal/classify"
	"janai-go/internal/draft"
	"janai-go/internal/types"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New("test-key", "test-model",
		WithBaseURL(srv.URL+"/v1/"),
		WithTimeout(2*time.Second),
		WithRetry(time.Millisecond, 200*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "m")
	assert.Error(t, err)
	_, err = New("k", "")
	assert.Error(t, err)
}

func TestSubmitVoiceText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Contains(t, body.Messages[1].Content, "Hindi")
		assert.Contains(t, body.Messages[1].Content, "kisi ne aag lagai")

		reply := "```json\n" + `{"detectedLanguage":"Hindi","detectedState":"Uttar Pradesh","emergencyType":"fire",` +
			`"helplineNumbers":[{"number":"101","name":"Fire","description":"Fire {rescue}"},{"number":"112","name":"ERSS"}]}` + "\n```"
		_ = json.NewEncoder(w).Encode(completion(reply))
	})

	resp, err := c.SubmitVoiceText(context.Background(), classify.VoiceTextRequest{Text: "kisi ne aag lagai", InputLanguage: "hi-IN"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "fire", resp.EmergencyType)
	require.Len(t, resp.HelplineNumbers, 2)
	assert.Equal(t, "Fire {rescue}", resp.HelplineNumbers[0].Description)
}

func TestSubmitVoiceTextWithoutHelplinesIsUnsuccessful(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"emergencyType":"general","helplineNumbers":[]}`))
	})
	resp, err := c.SubmitVoiceText(context.Background(), classify.VoiceTextRequest{Text: "hello"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestRetriesUnparseableOutput(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_ = json.NewEncoder(w).Encode(completion("Sorry, I cannot help with that."))
			return
		}
		_ = json.NewEncoder(w).Encode(completion(`{"draft":"Subject: Garbage not collected\n\nDear Sir,"}`))
	})

	rd, err := c.GenerateDraft(context.Background(), types.DraftRequest{Category: "Solid Waste", IssueDescription: "garbage"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, draft.StatusOK, rd.Status)
	assert.True(t, strings.HasPrefix(rd.Draft, "Subject: Garbage"))
	assert.Equal(t, "solid.waste@examplecity.gov.in", rd.Authority.Email)
}

func TestDraftErrorPrefixIsFailedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"draft":"Error generating complaint draft: refused"}`))
	})
	rd, err := c.GenerateDraft(context.Background(), types.DraftRequest{Category: "Water", IssueDescription: "x"})
	require.NoError(t, err)
	assert.Equal(t, draft.StatusFailed, rd.Status)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})
	_, err := c.SubmitVoiceText(context.Background(), classify.VoiceTextRequest{Text: "x"})
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"plain":        `{"a":1}`,
		"fenced":       "```json\n{\"a\":1}\n```",
		"prose":        "Here you go: {\"a\":1} hope it helps {\"b\":2}",
		"nested":       `x {"a":{"b":"}"}} y`,
		"none":         "no json here",
		"unterminated": `{"a":`,
	}
	want := map[string]string{
		"plain":        `{"a":1}`,
		"fenced":       `{"a":1}`,
		"prose":        `{"a":1}`,
		"nested":       `{"a":{"b":"}"}}`,
		"none":         "",
		"unterminated": "",
	}
	for name, in := range cases {
		assert.Equal(t, want[name], extractJSON(in), name)
	}
}
