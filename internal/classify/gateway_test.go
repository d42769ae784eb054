package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janai-go/internal/apperr"
	"janai-go/internal/types"
)

type fakeRemote struct {
	resp  VoiceTextResponse
	err   error
	calls []VoiceTextRequest
}

func (f *fakeRemote) SubmitVoiceText(_ context.Context, req VoiceTextRequest) (VoiceTextResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func numbers(hs []types.HelplineEntry) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Number)
	}
	return out
}

func TestClassifyBlankTextIsInputError(t *testing.T) {
	remote := &fakeRemote{}
	g := NewGateway(remote)

	_, err := g.Classify(context.Background(), "  \n ", "hi-IN", "")
	assert.ErrorIs(t, err, apperr.ErrInput)
	assert.Empty(t, remote.calls)
}

func TestClassifyUnreachableRemoteFallsBack(t *testing.T) {
	remote := &fakeRemote{err: apperr.Transport("backend.voice", errors.New("dial tcp: connection refused"))}
	g := NewGateway(remote)

	res, err := g.Classify(context.Background(), "kisi ne aag lagai", "hi-IN", "")
	require.NoError(t, err)
	assert.Equal(t, "Uttar Pradesh", res.DetectedRegion)
	assert.Equal(t, "general", res.EmergencyType)
	assert.Equal(t, []string{"112", "100", "108", "101"}, numbers(res.Helplines))
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, "kisi ne aag lagai", res.SourceText)
	require.Len(t, remote.calls, 1)
	assert.Equal(t, "hi-IN", remote.calls[0].InputLanguage)
}

func TestFallbackPrefersCallerRegion(t *testing.T) {
	g := NewGateway(nil)

	res, err := g.Classify(context.Background(), "help", "ta-IN", "Goa")
	require.NoError(t, err)
	assert.Equal(t, "Goa", res.DetectedRegion)
	assert.Equal(t, "Tamil", res.DetectedLanguage)

	res, err = g.Classify(context.Background(), "help", "xx-YY", "")
	require.NoError(t, err)
	assert.Equal(t, "India", res.DetectedRegion)
}

func TestClassifyUnsuccessfulOrEmptyFallsBack(t *testing.T) {
	cases := map[string]VoiceTextResponse{
		"unsuccessful": {Success: false, Message: "quota exceeded"},
		"no helplines": {Success: true, EmergencyType: "fire"},
		"blank numbers": {Success: true, HelplineNumbers: []RemoteHelpline{{Name: "Fire", Number: " "}}},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(&fakeRemote{resp: resp})
			res, err := g.Classify(context.Background(), "aag", "mr-IN", "")
			require.NoError(t, err)
			assert.True(t, res.FallbackUsed)
			assert.Equal(t, "Maharashtra", res.DetectedRegion)
			assert.Len(t, res.Helplines, 4)
		})
	}
}

func TestClassifyUsesRemoteAnswer(t *testing.T) {
	remote := &fakeRemote{resp: VoiceTextResponse{
		Success:          true,
		DetectedLanguage: "Hindi",
		DetectedState:    "Delhi",
		EmergencyType:    "fire",
		HelplineNumbers: []RemoteHelpline{
			{Number: "101", Name: "Fire", Description: "Fire emergency", Availability: "24/7", State: "All India"},
			{Number: "1916", Name: "Delhi Jal Board", State: "Delhi"},
		},
	}}
	g := NewGateway(remote)

	res, err := g.Classify(context.Background(), "aag lagi hai", "hi-IN", "")
	require.NoError(t, err)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "Delhi", res.DetectedRegion)
	assert.Equal(t, "fire", res.EmergencyType)
	require.Len(t, res.Helplines, 2)
	assert.Equal(t, types.LevelCentral, res.Helplines[0].Level)
	assert.Equal(t, types.HelplineEntry{Service: "Delhi Jal Board", Number: "1916", Level: types.LevelState, State: "Delhi"}, res.Helplines[1])
}

func TestClassifyRemoteNoteMarksFallback(t *testing.T) {
	remote := &fakeRemote{resp: VoiceTextResponse{
		Success:         true,
		HelplineNumbers: []RemoteHelpline{{Number: "112", Name: "ERSS"}},
		Note:            "AI unavailable, keyword analysis used",
	}}
	res, err := NewGateway(remote).Classify(context.Background(), "madad", "pa-IN", "")
	require.NoError(t, err)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, "Punjab", res.DetectedRegion)
	assert.Equal(t, "general", res.EmergencyType)
	assert.Equal(t, "AI unavailable, keyword analysis used", res.Note)
}

func TestNationalHelplinesIsACopy(t *testing.T) {
	a := NationalHelplines()
	a[0].Number = "000"
	assert.Equal(t, "112", NationalHelplines()[0].Number)
}

func TestClassifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	failing := NewGateway(&fakeRemote{err: errors.New("timeout")})
	empty := NewGateway(&fakeRemote{resp: VoiceTextResponse{Success: true}})
	languages := []string{"hi-IN", "en-IN", "ta-IN", "ur-IN", "zz"}

	properties.Property("non-blank text always yields helplines and no error", prop.ForAll(
		func(text string, pick int) bool {
			text = "x" + text
			lang := languages[pick%len(languages)]
			for _, g := range []*Gateway{failing, empty, NewGateway(nil)} {
				res, err := g.Classify(context.Background(), text, lang, "")
				if err != nil || len(res.Helplines) == 0 || !res.FallbackUsed {
					return false
				}
				if res.SourceText != strings.TrimSpace(text) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
