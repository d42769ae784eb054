package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/processor"
	"janai-go/internal/speech"
	"janai-go/internal/types"
)

// Client to server messages.
const (
	msgStart    = "start"    // user pressed record; Microphone says whether permission was granted
	msgStop     = "stop"     // user pressed stop
	msgCancel   = "cancel"   // user left the page
	msgLanguage = "language" // user picked another language
	msgPartial  = "partial"  // engine interim result
	msgFinal    = "final"    // engine final result
	msgEnd      = "end"      // engine ended
	msgError    = "error"    // engine error
)

// Server to client messages.
const (
	msgConnected = "connected"
	msgCommand   = "command"
	msgState     = "state"
	msgResult    = "result"
	msgRejected  = "rejected"
)

type captureIncoming struct {
	Type       string `json:"type"`
	Language   string `json:"language,omitempty"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	Microphone string `json:"microphone,omitempty"`
	// Draft carries the complaint form on start in the draft flow.
	Draft *types.DraftRequest `json:"draft,omitempty"`
}

type captureOutgoing struct {
	Type           string                      `json:"type"`
	SessionID      string                      `json:"session_id,omitempty"`
	Command        string                      `json:"command,omitempty"`
	Language       string                      `json:"language,omitempty"`
	Continuous     bool                        `json:"continuous,omitempty"`
	InterimResults bool                        `json:"interim_results,omitempty"`
	State          *speech.Snapshot            `json:"state,omitempty"`
	Transcript     string                      `json:"transcript,omitempty"`
	Result         *types.ClassificationResult `json:"result,omitempty"`
	Draft          *types.DraftResult          `json:"draft,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// Capture flows selected with ?flow=.
const (
	flowHelpline = "helpline"
	flowDraft    = "draft"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	return s.origins[origin]
}

// socket serialises writes; gorilla connections allow one writer at a time.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *socket) send(m captureOutgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

// socketEngine drives the browser's recogniser through command messages.
type socketEngine struct{ sock *socket }

func (e socketEngine) Start(_ context.Context, cfg speech.EngineConfig) error {
	return e.sock.send(captureOutgoing{
		Type:           msgCommand,
		Command:        "start",
		Language:       cfg.Language,
		Continuous:     cfg.Continuous,
		InterimResults: cfg.InterimResults,
	})
}

func (e socketEngine) Stop() error {
	return e.sock.send(captureOutgoing{Type: msgCommand, Command: "stop"})
}

var errMicDenied = errors.New("microphone permission not granted")

// socketMic reports the permission the browser obtained before sending
// start.
type socketMic struct {
	mu      sync.Mutex
	granted bool
}

func (m *socketMic) set(state string) {
	m.mu.Lock()
	m.granted = state == "" || state == "granted"
	m.mu.Unlock()
}

func (m *socketMic) Request(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.granted {
		return errMicDenied
	}
	return nil
}

// captureFlow binds a processor to the socket protocol. onStart, when
// set, sees every start message before the session does.
type captureFlow[R any] struct {
	proc    speech.Processor[R]
	onStart func(captureIncoming) error
	fill    func(out *captureOutgoing, res R)
}

// capture upgrades to a websocket and runs one capture session per
// connection. ?flow=draft dictates a complaint description and returns
// a draft letter; the default flow classifies for helplines.
// ?speech=unsupported marks a browser without a recogniser.
func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	switch flow := r.URL.Query().Get("flow"); flow {
	case "", flowHelpline:
		runCapture(s, w, r, captureFlow[types.ClassificationResult]{
			proc: s.helpline,
			fill: func(out *captureOutgoing, res types.ClassificationResult) { out.Result = &res },
		})
	case flowDraft:
		form := &draftForm{}
		log := s.log.Component("processor")
		runCapture(s, w, r, captureFlow[types.DraftResult]{
			proc: speech.ProcessorFunc[types.DraftResult](func(ctx context.Context, t speech.Transcript) (types.DraftResult, error) {
				return processor.NewDraftFlow(s.deps.Drafter, form.get(), log).Process(ctx, t)
			}),
			onStart: form.set,
			fill:    func(out *captureOutgoing, res types.DraftResult) { out.Draft = &res },
		})
	default:
		s.fail(w, r, "capture", apperr.Input("api.capture", "unknown capture flow %q", flow))
	}
}

// draftForm is the complaint form the citizen is dictating into. Each
// start message replaces it.
type draftForm struct {
	mu  sync.Mutex
	req types.DraftRequest
}

func (f *draftForm) set(in captureIncoming) error {
	if in.Draft == nil || strings.TrimSpace(in.Draft.Category) == "" {
		return apperr.Input("api.capture", "draft flow start requires a form with a category")
	}
	f.mu.Lock()
	f.req = *in.Draft
	f.mu.Unlock()
	return nil
}

func (f *draftForm) get() types.DraftRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.req
}

func runCapture[R any](s *Server, w http.ResponseWriter, r *http.Request, flow captureFlow[R]) {
	up := upgrader
	up.CheckOrigin = s.checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithRequest(r).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	log := s.log.WithRequest(r).WithField("session_id", sessionID)
	sock := &socket{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var engine speech.Engine = socketEngine{sock: sock}
	if r.URL.Query().Get("speech") == "unsupported" {
		engine = nil
	}
	mic := &socketMic{}
	sess := speech.New(engine, mic, flow.proc, speech.Config{
		Continuous: s.deps.Continuous,
		Language:   r.URL.Query().Get("language"),
		Registry:   s.deps.Registry,
		Logger:     log.WithField("component", "speech"),
		OnChange: func(snap speech.Snapshot) {
			if err := sock.send(captureOutgoing{Type: msgState, State: &snap}); err != nil {
				log.WithError(err).Debug("state push failed")
			}
		},
	})
	sess.OnResult(func(o speech.Outcome[R]) {
		out := captureOutgoing{Type: msgResult, Transcript: o.Transcript.Text}
		if o.Err != nil {
			out.Error = o.Err.Error()
		} else {
			flow.fill(&out, o.Result)
		}
		if err := sock.send(out); err != nil {
			log.WithError(err).Warn("result push failed")
		}
	})
	defer sess.Wait()
	defer sess.Cancel()

	snap := sess.Snapshot()
	if err := sock.send(captureOutgoing{Type: msgConnected, SessionID: sessionID, State: &snap}); err != nil {
		log.WithError(err).Warn("failed to send connected message")
		return
	}
	log.Info("capture connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("capture socket closed unexpectedly")
			}
			return
		}
		var in captureIncoming
		if err := json.Unmarshal(data, &in); err != nil {
			_ = sock.send(captureOutgoing{Type: msgRejected, Error: "invalid message format"})
			continue
		}
		if err := handleCapture(ctx, sess, mic, flow.onStart, in); err != nil {
			log.WithFields(logrus.Fields{"type": in.Type}).WithError(err).Debug("capture message rejected")
			_ = sock.send(captureOutgoing{Type: msgRejected, Error: err.Error()})
		}
	}
}

func handleCapture[R any](ctx context.Context, sess *speech.Session[R], mic *socketMic, onStart func(captureIncoming) error, in captureIncoming) error {
	switch in.Type {
	case msgStart:
		if onStart != nil && sess.Snapshot().State == speech.StateIdle {
			if err := onStart(in); err != nil {
				return err
			}
		}
		mic.set(in.Microphone)
		return sess.Start(ctx, in.Language)
	case msgStop:
		return sess.Stop()
	case msgCancel:
		sess.Cancel()
	case msgLanguage:
		return sess.SetLanguage(in.Language)
	case msgPartial:
		sess.OnPartialResult(in.Text)
	case msgFinal:
		sess.OnFinalResult(in.Text)
	case msgEnd:
		sess.OnEnd()
	case msgError:
		sess.OnError(in.Error)
	default:
		return errors.New("unknown message type " + in.Type)
	}
	return nil
}
