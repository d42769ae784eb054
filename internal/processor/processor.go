// Package processor connects finished transcripts to the classification
// gateway and the draft generator.
package processor

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/directory"
	"janai-go/internal/filter"
	"janai-go/internal/logger"
	"janai-go/internal/speech"
	"janai-go/internal/types"
)

type Classifier interface {
	Classify(ctx context.Context, text, languageCode, region string) (types.ClassificationResult, error)
}

type Drafter interface {
	Generate(ctx context.Context, req types.DraftRequest) (types.DraftResult, error)
}

// HelplineFlow answers "who do I call" for a spoken emergency.
type HelplineFlow struct {
	classifier Classifier
	dir        directory.Source
	log        *logrus.Entry
}

var _ speech.Processor[types.ClassificationResult] = (*HelplineFlow)(nil)

func NewHelplineFlow(c Classifier, dir directory.Source, log *logrus.Entry) *HelplineFlow {
	if dir == nil {
		dir = directory.Builtin()
	}
	if log == nil {
		log = logger.Discard().Component("processor")
	}
	return &HelplineFlow{classifier: c, dir: dir, log: log}
}

func (f *HelplineFlow) Process(ctx context.Context, t speech.Transcript) (types.ClassificationResult, error) {
	start := time.Now()
	res, err := f.classifier.Classify(ctx, t.Text, t.LanguageCode, t.Region)
	if err != nil {
		return types.ClassificationResult{}, err
	}
	f.log.WithFields(logrus.Fields{
		"language":    t.LanguageCode,
		"region":      res.DetectedRegion,
		"fallback":    res.FallbackUsed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("helpline flow done")
	return res, nil
}

// Helplines lists the directory entries for region, narrowed to issue when
// one is given.
func (f *HelplineFlow) Helplines(ctx context.Context, region, issue string) ([]types.HelplineEntry, error) {
	hs, err := f.dir.Helplines(ctx, region)
	if err != nil {
		return nil, err
	}
	return Narrow(hs, issue)
}

// Narrow keeps the entries matching a keyword category. Unknown categories
// are an input error rather than an empty list.
func Narrow[T filter.Searchable](records []T, issue string) ([]T, error) {
	if strings.TrimSpace(issue) != "" && !filter.Default().Known(issue) {
		return nil, apperr.Input("processor.narrow", "unknown issue category %q", issue)
	}
	return filter.Filter(records, issue), nil
}

// SuggestRegion returns the region a directory lookup should preselect for
// a classification. National results suggest nothing.
func SuggestRegion(res types.ClassificationResult) (string, bool) {
	r := strings.TrimSpace(res.DetectedRegion)
	if r == "" || strings.EqualFold(r, "All India") || strings.EqualFold(r, string(types.LevelCentral)) {
		return "", false
	}
	return r, true
}

// DraftFlow appends a spoken description to a complaint form and drafts
// the letter. One DraftFlow serves one capture session.
type DraftFlow struct {
	drafter Drafter
	req     types.DraftRequest
	log     *logrus.Entry
}

var _ speech.Processor[types.DraftResult] = (*DraftFlow)(nil)

func NewDraftFlow(d Drafter, req types.DraftRequest, log *logrus.Entry) *DraftFlow {
	if log == nil {
		log = logger.Discard().Component("processor")
	}
	return &DraftFlow{drafter: d, req: req, log: log}
}

func (f *DraftFlow) Process(ctx context.Context, t speech.Transcript) (types.DraftResult, error) {
	req := f.req
	req.IssueDescription = AppendTranscript(req.IssueDescription, t.Text)
	if strings.TrimSpace(req.Region) == "" {
		req.Region = t.Region
	}
	res, err := f.drafter.Generate(ctx, req)
	if err != nil {
		return types.DraftResult{}, err
	}
	f.log.WithFields(logrus.Fields{"category": req.Category, "fallback": res.FallbackUsed}).Info("draft flow done")
	return res, nil
}

// AppendTranscript adds spoken text to what the user already typed.
func AppendTranscript(description, transcript string) string {
	description = strings.TrimSpace(description)
	transcript = strings.TrimSpace(transcript)
	switch {
	case description == "":
		return transcript
	case transcript == "":
		return description
	}
	return description + " " + transcript
}
