package processor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"janai-go/internal/speech"
	"janai-go/internal/types"
)

type Transcriber interface {
	Transcribe(ctx context.Context, recordingURL, languageCode string) (string, error)
}

// RecordingResult is returned for an uploaded voice note.
type RecordingResult struct {
	RecordingURL    string                     `json:"recording_url"`
	Transcript      string                     `json:"transcript"`
	Classification  types.ClassificationResult `json:"classification"`
	SuggestedRegion string                     `json:"suggested_region,omitempty"`
	DurationMs      int64                      `json:"duration_ms"`
}

// RecordingFlow is the batch path used when no live speech engine is
// available: transcribe a stored recording, then run the helpline flow.
type RecordingFlow struct {
	transcriber Transcriber
	helpline    *HelplineFlow
	log         *logrus.Entry
}

func NewRecordingFlow(t Transcriber, h *HelplineFlow) *RecordingFlow {
	return &RecordingFlow{transcriber: t, helpline: h, log: h.log}
}

func (f *RecordingFlow) Process(ctx context.Context, recordingURL, languageCode, region string) (RecordingResult, error) {
	start := time.Now()
	res := RecordingResult{RecordingURL: recordingURL}
	log := f.log.WithFields(logrus.Fields{"recording_url": recordingURL, "language": languageCode})

	text, err := f.transcriber.Transcribe(ctx, recordingURL, languageCode)
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		return res, err
	}
	res.Transcript = text

	cls, err := f.helpline.Process(ctx, speech.Transcript{Text: text, LanguageCode: languageCode, Region: region})
	if err != nil {
		return res, err
	}
	res.Classification = cls
	res.SuggestedRegion, _ = SuggestRegion(cls)
	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}
