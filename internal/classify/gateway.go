// Package classify turns a transcript into a routable helpline
// classification, falling back to the national emergency numbers whenever
// the remote classifier cannot give a usable answer.
package classify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/language"
	"janai-go/internal/logger"
	"janai-go/internal/types"
)

const EmergencyGeneral = "general"

const fallbackNote = "Remote classification unavailable; showing national emergency numbers."

// VoiceTextRequest is the submitVoiceText payload.
type VoiceTextRequest struct {
	Text          string `json:"text"`
	InputLanguage string `json:"inputLanguage"`
	Region        string `json:"region,omitempty"`
}

// RemoteHelpline is a helpline as the remote classifier reports it.
type RemoteHelpline struct {
	Number       string `json:"number"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Description  string `json:"description,omitempty"`
	Availability string `json:"availability,omitempty"`
	State        string `json:"state,omitempty"`
}

type VoiceTextResponse struct {
	Success            bool             `json:"success"`
	DetectedLanguage   string           `json:"detectedLanguage"`
	DetectedState      string           `json:"detectedState"`
	EmergencyType      string           `json:"emergencyType"`
	HelplineNumbers    []RemoteHelpline `json:"helplineNumbers"`
	TranslatedResponse string           `json:"translatedResponse,omitempty"`
	// Note is set when the remote itself answered from a fallback.
	Note    string `json:"note,omitempty"`
	Message string `json:"message,omitempty"`
}

// Remote is the remote classification contract.
type Remote interface {
	SubmitVoiceText(ctx context.Context, req VoiceTextRequest) (VoiceTextResponse, error)
}

type Gateway struct {
	remote Remote
	reg    *language.Registry
	log    *logrus.Entry
}

type Option func(*Gateway)

func WithRegistry(reg *language.Registry) Option {
	return func(g *Gateway) { g.reg = reg }
}

func WithLogger(log *logrus.Entry) Option {
	return func(g *Gateway) { g.log = log }
}

// NewGateway builds a gateway. A nil remote always answers from the fallback.
func NewGateway(remote Remote, opts ...Option) *Gateway {
	g := &Gateway{remote: remote}
	for _, opt := range opts {
		opt(g)
	}
	if g.reg == nil {
		g.reg = language.Default()
	}
	if g.log == nil {
		g.log = logger.Discard().Component("classify")
	}
	return g
}

// Classify returns a complete classification for text. The only error it
// returns is an input error for blank text; remote failures are absorbed by
// the fallback.
func (g *Gateway) Classify(ctx context.Context, text, languageCode, region string) (types.ClassificationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ClassificationResult{}, apperr.Input("classify", "text must not be empty")
	}
	log := g.log.WithFields(logrus.Fields{"language": languageCode, "region": region})

	if g.remote == nil {
		log.Warn("no remote classifier configured, using fallback")
		return g.Fallback(text, languageCode, region), nil
	}

	resp, err := g.remote.SubmitVoiceText(ctx, VoiceTextRequest{
		Text:          text,
		InputLanguage: languageCode,
		Region:        region,
	})
	if err != nil {
		log.WithError(err).Warn("remote classification failed, using fallback")
		return g.Fallback(text, languageCode, region), nil
	}
	if !resp.Success {
		log.WithField("message", resp.Message).Warn("remote classification unsuccessful, using fallback")
		return g.Fallback(text, languageCode, region), nil
	}
	helplines := convert(resp.HelplineNumbers)
	if len(helplines) == 0 {
		log.Warn("remote classification returned no helplines, using fallback")
		return g.Fallback(text, languageCode, region), nil
	}

	result := types.ClassificationResult{
		SourceText:       text,
		DetectedLanguage: firstNonEmpty(resp.DetectedLanguage, g.reg.DisplayName(languageCode)),
		DetectedRegion:   firstNonEmpty(resp.DetectedState, region, g.reg.RegionFor(languageCode)),
		EmergencyType:    firstNonEmpty(resp.EmergencyType, EmergencyGeneral),
		Helplines:        helplines,
		FallbackUsed:     resp.Note != "",
		Note:             resp.Note,
	}
	log.WithFields(logrus.Fields{
		"emergency_type": result.EmergencyType,
		"helplines":      len(result.Helplines),
		"fallback":       result.FallbackUsed,
	}).Info("transcript classified")
	return result, nil
}

// Fallback builds the deterministic local classification. A non-empty
// region wins over the language's region.
func (g *Gateway) Fallback(text, languageCode, region string) types.ClassificationResult {
	return types.ClassificationResult{
		SourceText:       strings.TrimSpace(text),
		DetectedLanguage: g.reg.DisplayName(languageCode),
		DetectedRegion:   firstNonEmpty(strings.TrimSpace(region), g.reg.RegionFor(languageCode)),
		EmergencyType:    EmergencyGeneral,
		Helplines:        NationalHelplines(),
		FallbackUsed:     true,
		Note:             fallbackNote,
	}
}

// NationalHelplines returns a fresh copy of the all-India emergency numbers.
func NationalHelplines() []types.HelplineEntry {
	return []types.HelplineEntry{
		{Service: "Emergency Response Support System (ERSS)", Number: "112", Level: types.LevelCentral, Notes: "All emergencies", Availability: "24/7"},
		{Service: "Police", Number: "100", Level: types.LevelCentral, Notes: "Police assistance and law enforcement", Availability: "24/7"},
		{Service: "Ambulance Service", Number: "108", Level: types.LevelCentral, Notes: "Medical emergency and ambulance service", Availability: "24/7"},
		{Service: "Fire Brigade", Number: "101", Level: types.LevelCentral, Notes: "Fire emergency and rescue services", Availability: "24/7"},
	}
}

func convert(in []RemoteHelpline) []types.HelplineEntry {
	out := make([]types.HelplineEntry, 0, len(in))
	for _, h := range in {
		number := strings.TrimSpace(h.Number)
		if number == "" {
			continue
		}
		entry := types.HelplineEntry{
			Service:      firstNonEmpty(h.Name, h.Type, number),
			Number:       number,
			Level:        types.LevelCentral,
			Notes:        h.Description,
			Availability: h.Availability,
		}
		if st := strings.TrimSpace(h.State); st != "" && !strings.EqualFold(st, "All India") {
			entry.Level = types.LevelState
			entry.State = st
		}
		out = append(out, entry)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
