package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"janai-go/internal/api"
	"janai-go/internal/backend"
	"janai-go/internal/classify"
	"janai-go/internal/complaint"
	"janai-go/internal/config"
	"janai-go/internal/directory"
	"janai-go/internal/draft"
	"janai-go/internal/language"
	"janai-go/internal/llm"
	"janai-go/internal/logger"
	"janai-go/internal/processor"
	"janai-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "janai-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	deps, err := wire(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire components")
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(deps).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("stopped")
}

// wire picks the remote for each concern: the LLM when a key is set, the
// backend when a URL is set, local fallback otherwise.
func wire(cfg config.Config, log *logger.Logger) (api.Deps, error) {
	reg := language.Default()
	deps := api.Deps{
		Registry:       reg,
		Log:            log,
		Continuous:     cfg.Capture.Continuous,
		AllowedOrigins: cfg.Capture.AllowedOrigins,
		MaxManagers:    cfg.Backend.MaxCachedUsers,
	}

	var (
		classifyRemote classify.Remote
		draftRemote    draft.Remote
	)
	if cfg.Backend.BaseURL != "" {
		be := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout,
			backend.WithLogger(log.Component("backend")),
			backend.WithRetry(500*time.Millisecond, cfg.Backend.MaxRetryTime),
		)
		classifyRemote, draftRemote = be, be
		deps.Complaints = complaint.Backend(be)
		deps.Directory = directory.Source(be)
		log.WithField("backend_url", cfg.Backend.BaseURL).Info("backend configured")
	}
	if cfg.LLM.Enabled() {
		opts := []llm.Option{
			llm.WithTimeout(cfg.LLM.Timeout),
			llm.WithLogger(log.Component("llm")),
			llm.WithRegistry(reg),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		c, err := llm.New(cfg.LLM.APIKey, cfg.LLM.Model, opts...)
		if err != nil {
			return api.Deps{}, err
		}
		classifyRemote, draftRemote = c, c
		log.WithField("model", cfg.LLM.Model).Info("llm configured")
	}

	deps.Classifier = classify.NewGateway(classifyRemote,
		classify.WithRegistry(reg),
		classify.WithLogger(log.Component("classify")),
	)
	draftOpts := []draft.Option{draft.WithLogger(log.Component("draft"))}
	if cfg.Draft.Seed != 0 {
		draftOpts = append(draftOpts, draft.WithSeed(cfg.Draft.Seed))
	}
	deps.Drafter = draft.NewGenerator(draftRemote, draftOpts...)

	if cfg.Directory.Path != "" {
		dir, err := directory.Open(cfg.Directory.Path)
		if err != nil {
			return api.Deps{}, err
		}
		nh, ns := dir.Len()
		log.WithField("directory_path", cfg.Directory.Path).WithField("helplines", nh).WithField("schemes", ns).Info("directory loaded")
		deps.Directory = dir
	}

	tr := transcription.New(cfg.Transcribe.BaseURL,
		transcription.WithMock(cfg.Transcribe.Mock),
		transcription.WithLogger(log.Component("transcription")),
	)
	if tr.Enabled() {
		deps.Transcriber = processor.Transcriber(tr)
	}
	return deps, nil
}
