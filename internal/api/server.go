// Package api exposes the intake pipeline over HTTP and bridges a browser
// speech engine into capture sessions over a websocket.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"janai-go/internal/apperr"
	"janai-go/internal/classify"
	"janai-go/internal/complaint"
	"janai-go/internal/directory"
	"janai-go/internal/draft"
	"janai-go/internal/language"
	"janai-go/internal/logger"
	"janai-go/internal/processor"
)

const maxBodyBytes = 1 << 20

// Deps are the components the server routes to. A nil Classifier or
// Drafter means local fallback only. A nil Complaints or Transcriber turns
// the matching endpoints into capability errors.
type Deps struct {
	Registry    *language.Registry
	Classifier  processor.Classifier
	Drafter     processor.Drafter
	Complaints  complaint.Backend
	Directory   directory.Source
	Transcriber processor.Transcriber
	Log         *logger.Logger

	// Continuous selects continuous capture for websocket sessions.
	Continuous     bool
	AllowedOrigins []string
	// MaxManagers bounds how many users' complaint lists are cached.
	MaxManagers int
}

const defaultMaxManagers = 1024

type Server struct {
	deps      Deps
	log       *logger.Logger
	helpline  *processor.HelplineFlow
	recording *processor.RecordingFlow
	origins   map[string]bool

	managers *managerCache
}

func New(d Deps) *Server {
	if d.Registry == nil {
		d.Registry = language.Default()
	}
	if d.Directory == nil {
		d.Directory = directory.Builtin()
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.MaxManagers <= 0 {
		d.MaxManagers = defaultMaxManagers
	}
	if d.Classifier == nil {
		d.Classifier = classify.NewGateway(nil, classify.WithRegistry(d.Registry), classify.WithLogger(d.Log.Component("classify")))
	}
	if d.Drafter == nil {
		d.Drafter = draft.NewGenerator(nil, draft.WithLogger(d.Log.Component("draft")))
	}
	s := &Server{
		deps:     d,
		log:      d.Log,
		origins:  map[string]bool{},
		managers: newManagerCache(d.MaxManagers),
	}
	for _, o := range d.AllowedOrigins {
		s.origins[o] = true
	}
	s.helpline = processor.NewHelplineFlow(d.Classifier, d.Directory, d.Log.Component("processor"))
	if d.Transcriber != nil {
		s.recording = processor.NewRecordingFlow(d.Transcriber, s.helpline)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /languages", s.languages)
	mux.HandleFunc("POST /languages/detect", s.detectLanguage)
	mux.HandleFunc("POST /classify", s.classify)
	mux.HandleFunc("POST /drafts", s.draft)
	mux.HandleFunc("POST /complaints", s.fileComplaint)
	mux.HandleFunc("GET /complaints", s.listComplaints)
	mux.HandleFunc("GET /complaints/summary", s.complaintSummary)
	mux.HandleFunc("POST /complaints/{id}/resolve", s.resolveComplaint)
	mux.HandleFunc("GET /helplines", s.helplines)
	mux.HandleFunc("POST /schemes", s.schemes)
	mux.HandleFunc("POST /recordings", s.recordings)
	mux.HandleFunc("GET /capture", s.capture)
	return withRequestID(mux)
}

// withRequestID pins one request id for the lifetime of the request so
// every log line of it carries the same value.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logger.RequestID(r)
		r.Header.Set("X-Request-ID", id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// manager returns the complaint manager of userID, creating it on first
// use. The least recently used manager is evicted past MaxManagers; its
// list is reloaded from the backend on next use.
func (s *Server) manager(userID string) (*complaint.Manager, error) {
	if s.deps.Complaints == nil {
		return nil, apperr.Capability("api.complaints", "no complaint backend configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Input("api.complaints", "userId is required")
	}
	return s.managers.get(userID, func() *complaint.Manager {
		return complaint.NewManager(userID, s.deps.Complaints, complaint.WithLogger(s.log.Component("complaint")))
	}), nil
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrCapability):
		return http.StatusNotImplemented
	case errors.Is(err, complaint.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransport), errors.Is(err, apperr.ErrService):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, handler string, err error) {
	status := statusFor(err)
	log := s.log.WithRequest(r).WithField("handler", handler).WithField("status", status).WithError(err)
	if status >= 500 {
		log.Error("request failed")
	} else {
		log.Warn("request rejected")
	}
	body := errorBody{Error: err.Error()}
	if kind := apperr.KindOf(err); kind != nil {
		body.Kind = kind.Error()
	}
	_ = writeJSON(w, status, body)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, handler string, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.log.WithRequest(r).WithField("handler", handler).WithError(err).Error("failed to write response")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperr.Input("api.decode", "invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "ok")
}

// timed logs handler latency.
func (s *Server) timed(r *http.Request, handler string, start time.Time) {
	s.log.WithRequest(r).WithField("handler", handler).
		WithField("duration_ms", time.Since(start).Milliseconds()).Info("request handled")
}
