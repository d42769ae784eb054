// Package speech drives a single voice capture session: microphone
// permission, recognition events from a platform speech engine, and the
// hand-off of the finished transcript to a downstream processor.
//
// A Session is a small state machine:
//
//	idle -> recording -> processing -> idle
//	           |             |
//	           +--> idle <---+   (engine end without text, error, cancel)
//
// plus the terminal unsupported state when no engine is available. Engine
// events that arrive in a state that does not expect them are ignored.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/language"
	"janai-go/internal/logger"
)

type State string

const (
	StateIdle        State = "idle"
	StateRecording   State = "recording"
	StateProcessing  State = "processing"
	StateUnsupported State = "unsupported"
)

var (
	ErrSessionActive  = errors.New("a capture session is already active")
	ErrLanguageLocked = errors.New("language cannot change while recording")
	ErrNotRecording   = errors.New("no recording in progress")
)

// EngineConfig is handed to the speech engine on start.
type EngineConfig struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// Engine is the platform speech recognition capability. Recognition events
// flow back through the Session's On* methods.
type Engine interface {
	Start(ctx context.Context, cfg EngineConfig) error
	Stop() error
}

// Microphone asks the user for recording permission.
type Microphone interface {
	Request(ctx context.Context) error
}

// Transcript is what a finished recording hands to the processor.
type Transcript struct {
	Text         string
	LanguageCode string
	Region       string
}

type Processor[R any] interface {
	Process(ctx context.Context, t Transcript) (R, error)
}

type ProcessorFunc[R any] func(ctx context.Context, t Transcript) (R, error)

func (f ProcessorFunc[R]) Process(ctx context.Context, t Transcript) (R, error) { return f(ctx, t) }

// Snapshot is a consistent copy of the observable session state.
type Snapshot struct {
	State        State  `json:"state"`
	LanguageCode string `json:"language"`
	Continuous   bool   `json:"continuous"`
	InterimText  string `json:"interim_text,omitempty"`
	FinalText    string `json:"final_text,omitempty"`
	ErrorReason  string `json:"error,omitempty"`
	Token        uint64 `json:"token"`
}

// Outcome is the processor's answer for one dispatched transcript.
type Outcome[R any] struct {
	Token      uint64
	Transcript Transcript
	Result     R
	Err        error
}

// Config controls session behaviour. Zero values are usable.
type Config struct {
	// Continuous keeps the engine listening after each final result and
	// dispatches processing when the engine ends.
	Continuous bool
	// Language is the initial language code; the registry default when empty.
	Language string
	Registry *language.Registry
	Logger   *logrus.Entry
	OnChange func(Snapshot)
}

// Session is safe for concurrent use. Engine callbacks may arrive on any
// goroutine.
type Session[R any] struct {
	engine   Engine
	mic      Microphone
	proc     Processor[R]
	reg      *language.Registry
	log      *logrus.Entry
	onChange func(Snapshot)
	onResult func(Outcome[R])

	mu         sync.Mutex
	state      State
	lang       string
	continuous bool
	interim    string
	final      string
	errReason  string
	token      uint64
	ctx        context.Context
	cancel     context.CancelFunc
	result     *Outcome[R]

	wg sync.WaitGroup
}

// New builds a session. A nil engine leaves the session unsupported.
func New[R any](engine Engine, mic Microphone, proc Processor[R], cfg Config) *Session[R] {
	reg := cfg.Registry
	if reg == nil {
		reg = language.Default()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard().Component("speech")
	}
	lang := cfg.Language
	if _, ok := reg.Lookup(lang); !ok {
		lang = reg.DefaultCode()
	}
	s := &Session[R]{
		engine:     engine,
		mic:        mic,
		proc:       proc,
		reg:        reg,
		log:        log,
		onChange:   cfg.OnChange,
		state:      StateIdle,
		lang:       lang,
		continuous: cfg.Continuous,
	}
	if engine == nil {
		s.state = StateUnsupported
	}
	return s
}

// OnResult registers a callback for every outcome that was not superseded.
// Set it before the first Start.
func (s *Session[R]) OnResult(fn func(Outcome[R])) {
	s.mu.Lock()
	s.onResult = fn
	s.mu.Unlock()
}

// Start begins recording in the given language, or the current one when
// code is empty. ctx bounds the whole session including processing.
func (s *Session[R]) Start(ctx context.Context, code string) error {
	const op = "speech.start"

	s.mu.Lock()
	switch s.state {
	case StateIdle:
	case StateUnsupported:
		s.mu.Unlock()
		return apperr.Capability(op, "speech recognition is not supported on this platform")
	default:
		s.mu.Unlock()
		return apperr.Wrap(apperr.ErrInput, op, ErrSessionActive)
	}
	if code == "" {
		code = s.lang
	}
	profile, ok := s.reg.Lookup(code)
	if !ok {
		s.mu.Unlock()
		return apperr.Input(op, "unknown language %q", code)
	}

	// Claim the session before releasing the lock so that a concurrent Start
	// is rejected while permission is pending.
	s.token++
	token := s.token
	sessCtx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = sessCtx, cancel
	s.state = StateRecording
	s.lang = profile.Code
	s.interim, s.final, s.errReason = "", "", ""
	s.result = nil
	cfg := EngineConfig{
		Language:       profile.SpeechEngineCode(),
		Continuous:     s.continuous,
		InterimResults: s.continuous,
	}
	s.mu.Unlock()

	if s.mic != nil {
		if err := s.mic.Request(sessCtx); err != nil {
			s.abortStart(token, "microphone permission denied")
			return apperr.Permission(op, err)
		}
	}
	if err := s.engine.Start(sessCtx, cfg); err != nil {
		s.abortStart(token, err.Error())
		return apperr.Wrap(apperr.ErrCapability, op, err)
	}

	s.log.WithFields(logrus.Fields{
		"language":   profile.Code,
		"engine":     cfg.Language,
		"continuous": cfg.Continuous,
		"token":      token,
	}).Info("recording started")
	s.notify()
	return nil
}

func (s *Session[R]) abortStart(token uint64, reason string) {
	s.mu.Lock()
	if s.token != token || s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.state = StateIdle
	s.errReason = reason
	s.mu.Unlock()
	s.notify()
}

// OnPartialResult records interim text. Only continuous sessions show it.
func (s *Session[R]) OnPartialResult(text string) {
	s.mu.Lock()
	if s.state != StateRecording || !s.continuous {
		s.mu.Unlock()
		return
	}
	s.interim = joinText(s.interim, text)
	s.mu.Unlock()
	s.notify()
}

// OnFinalResult appends recognised text. A single-shot session moves
// straight to processing.
func (s *Session[R]) OnFinalResult(text string) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.final = joinText(s.final, text)
	s.interim = ""
	var job *dispatch
	if !s.continuous {
		job = s.beginProcessingLocked()
	}
	s.mu.Unlock()

	s.notify()
	s.run(job)
}

// Stop asks the engine to finish. The state changes when the engine reports
// its end through OnEnd.
func (s *Session[R]) Stop() error {
	s.mu.Lock()
	recording := s.state == StateRecording
	s.mu.Unlock()
	if !recording {
		return apperr.Wrap(apperr.ErrInput, "speech.stop", ErrNotRecording)
	}
	if err := s.engine.Stop(); err != nil {
		return fmt.Errorf("speech: stop engine: %w", err)
	}
	return nil
}

// OnEnd handles the engine's termination event.
func (s *Session[R]) OnEnd() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	var job *dispatch
	if s.continuous && strings.TrimSpace(s.final) != "" {
		job = s.beginProcessingLocked()
	} else {
		s.cancel()
		s.state = StateIdle
		s.interim = ""
	}
	s.mu.Unlock()

	s.notify()
	s.run(job)
}

// OnError moves a recording or processing session back to idle and
// supersedes any in-flight processing.
func (s *Session[R]) OnError(reason string) {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StateProcessing {
		s.mu.Unlock()
		return
	}
	s.token++
	s.cancel()
	s.state = StateIdle
	s.interim = ""
	s.errReason = reason
	s.mu.Unlock()

	s.log.WithField("reason", reason).Warn("capture failed")
	s.notify()
}

// Cancel abandons the session, as when the user navigates away.
func (s *Session[R]) Cancel() {
	s.mu.Lock()
	if s.state == StateUnsupported {
		s.mu.Unlock()
		return
	}
	wasRecording := s.state == StateRecording
	s.token++
	if s.cancel != nil {
		s.cancel()
	}
	s.state = StateIdle
	s.interim, s.final = "", ""
	s.mu.Unlock()

	if wasRecording {
		if err := s.engine.Stop(); err != nil {
			s.log.WithError(err).Debug("engine stop on cancel")
		}
	}
	s.notify()
}

// SetLanguage switches the language for the next recording.
func (s *Session[R]) SetLanguage(code string) error {
	const op = "speech.language"
	if _, ok := s.reg.Lookup(code); !ok {
		return apperr.Input(op, "unknown language %q", code)
	}
	s.mu.Lock()
	if s.state == StateRecording {
		s.mu.Unlock()
		return apperr.Wrap(apperr.ErrInput, op, ErrLanguageLocked)
	}
	s.lang = code
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session[R]) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session[R]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the latest completed outcome.
func (s *Session[R]) Result() (Outcome[R], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Outcome[R]{}, false
	}
	return *s.result, true
}

// Wait blocks until every dispatched processor call has returned.
func (s *Session[R]) Wait() { s.wg.Wait() }

type dispatch struct {
	ctx        context.Context
	token      uint64
	transcript Transcript
}

func (s *Session[R]) beginProcessingLocked() *dispatch {
	s.state = StateProcessing
	return &dispatch{
		ctx:   s.ctx,
		token: s.token,
		transcript: Transcript{
			Text:         strings.TrimSpace(s.final),
			LanguageCode: s.lang,
			Region:       s.reg.RegionFor(s.lang),
		},
	}
}

func (s *Session[R]) run(job *dispatch) {
	if job == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.proc.Process(job.ctx, job.transcript)
		s.complete(Outcome[R]{Token: job.token, Transcript: job.transcript, Result: res, Err: err})
	}()
}

func (s *Session[R]) complete(out Outcome[R]) {
	s.mu.Lock()
	if out.Token != s.token || s.state != StateProcessing {
		s.mu.Unlock()
		s.log.WithField("token", out.Token).Debug("discarding superseded outcome")
		return
	}
	s.cancel()
	s.state = StateIdle
	if out.Err != nil {
		s.errReason = out.Err.Error()
	} else {
		s.result = &out
	}
	onResult := s.onResult
	s.mu.Unlock()

	if out.Err != nil {
		s.log.WithError(out.Err).Warn("processing failed")
	}
	s.notify()
	if onResult != nil {
		onResult(out)
	}
}

func (s *Session[R]) snapshotLocked() Snapshot {
	return Snapshot{
		State:        s.state,
		LanguageCode: s.lang,
		Continuous:   s.continuous,
		InterimText:  s.interim,
		FinalText:    s.final,
		ErrorReason:  s.errReason,
		Token:        s.token,
	}
}

func (s *Session[R]) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}

func joinText(have, add string) string {
	add = strings.TrimSpace(add)
	switch {
	case add == "":
		return have
	case have == "":
		return add
	default:
		return have + " " + add
	}
}
