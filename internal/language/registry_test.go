package language

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryRegionTable(t *testing.T) {
	reg := Default()

	cases := map[string]string{
		"hi-IN": "Uttar Pradesh",
		"mr-IN": "Maharashtra",
		"ta-IN": "Tamil Nadu",
		"te-IN": "Andhra Pradesh",
		"gu-IN": "Gujarat",
		"bn-IN": "West Bengal",
		"ml-IN": "Kerala",
		"ur-IN": "Delhi",
		"pa-IN": "Punjab",
		"kn-IN": "Karnataka",
		"en-IN": "India",
		"xx-XX": "India",
	}
	for code, want := range cases {
		assert.Equal(t, want, reg.RegionFor(code), code)
	}
}

func TestDefaultRegistryLookup(t *testing.T) {
	reg := Default()

	assert.Equal(t, "hi-IN", reg.DefaultCode())
	p, ok := reg.Lookup("hi-IN-haryanvi")
	require.True(t, ok)
	assert.Equal(t, "hi-IN", p.SpeechEngineCode())

	assert.Equal(t, "Tamil", reg.DisplayName("ta-IN"))
	assert.Equal(t, "Hindi", reg.DisplayName("zz"))

	profiles := reg.Profiles()
	require.NotEmpty(t, profiles)
	assert.Equal(t, "hi-IN", profiles[0].Code)
}

func TestLoadRejectsDuplicatesAndMissingDefault(t *testing.T) {
	doc := `
default: fr-FR
languages:
  - code: hi-IN
    display_name: Hindi
  - code: hi-IN
    display_name: Hindi again
  - code: ""
    display_name: Nameless
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate code")
	assert.Contains(t, err.Error(), "code is required")
	assert.Contains(t, err.Error(), `default language "fr-FR"`)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc := `
default: hi-IN
languages:
  - code: hi-IN
    display_name: Hindi
    dialect: khariboli
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
}

func TestPreferred(t *testing.T) {
	reg := Default()

	assert.Equal(t, "mr-IN", reg.Preferred("mr").Code)
	assert.Equal(t, "ta-IN", reg.Preferred("ta-IN,ta;q=0.9,en;q=0.5").Code)
	assert.Equal(t, "hi-IN", reg.Preferred("xx").Code)
	assert.Equal(t, "hi-IN", reg.Preferred().Code)
}

func TestDetect(t *testing.T) {
	reg := Default()

	p, ok := reg.Detect("kisi ne aag lagai, madad karo")
	require.True(t, ok)
	assert.Equal(t, "hi-IN", p.Code)

	p, ok = reg.Detect("இங்கே தண்ணீர் இல்லை")
	require.True(t, ok)
	assert.Equal(t, "ta-IN", p.Code)

	_, ok = reg.Detect("1234 !!")
	assert.False(t, ok)
}
