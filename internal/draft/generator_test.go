package draft

import (
	"context"
	"errors"
	"regexp"
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
	draft RemoteDraft
	err   error
	calls int
}

func (f *fakeRemote) GenerateDraft(context.Context, types.DraftRequest) (RemoteDraft, error) {
	f.calls++
	return f.draft, f.err
}

func sampleRequest() types.DraftRequest {
	return types.DraftRequest{
		UserInfo: types.UserInfo{ID: "u-1", FullName: "Asha Verma", Mobile: "9876543210", Email: "asha@example.com"},
		Address: types.Address{
			HouseNo:      "12B",
			AddressLine1: "MG Road",
			AddressLine2: "Andheri East",
			PinCode:      "400069",
		},
		IssueDescription: "No water supply for three days",
		Category:         "Water Supply",
		Region:           "Maharashtra",
	}
}

var phonePattern = regexp.MustCompile(`^\+91-22-[1-9]\d{7}$`)

func TestGenerateRejectsMissingFields(t *testing.T) {
	remote := &fakeRemote{}
	g := NewGenerator(remote, WithSeed(7))

	req := sampleRequest()
	req.Category = " "
	_, err := g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrInput)

	req = sampleRequest()
	req.IssueDescription = ""
	_, err = g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrInput)

	assert.Zero(t, remote.calls)
}

func TestGenerateReturnsWellFormedRemoteDraft(t *testing.T) {
	remote := &fakeRemote{draft: RemoteDraft{
		Status:    StatusOK,
		Draft:     "Dear Sir, water is not coming.",
		Authority: types.Authority{Name: "Jal Vibhag", Email: "jal@mcgm.gov.in", Phone: "1916"},
	}}
	res, err := NewGenerator(remote).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "Dear Sir, water is not coming.", res.DraftText)
	assert.Equal(t, "jal@mcgm.gov.in", res.Authority.Email)
}

func TestGenerateFallsBack(t *testing.T) {
	cases := map[string]*fakeRemote{
		"transport": {err: apperr.Transport("backend.draft", errors.New("timeout"))},
		"failed":    {draft: RemoteDraft{Status: StatusFailed, Reason: "quota"}},
		"error prefix": {draft: RemoteDraft{
			Draft:     ErrorPrefix + " model overloaded",
			Authority: types.Authority{Name: "X", Email: "x@y.in"},
		}},
		"no authority": {draft: RemoteDraft{Draft: "letter"}},
	}
	for name, remote := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := NewGenerator(remote, WithSeed(1)).Generate(context.Background(), sampleRequest())
			require.NoError(t, err)
			assert.True(t, res.FallbackUsed)
			assert.Contains(t, res.DraftText, "No water supply for three days")
			assert.Equal(t, "Water Supply Department - Municipal Corporation", res.Authority.Name)
			assert.Equal(t, "water.supply@examplecity.gov.in", res.Authority.Email)
			assert.Regexp(t, phonePattern, res.Authority.Phone)
		})
	}
}

func TestComposeLayout(t *testing.T) {
	res := NewGenerator(nil, WithSeed(42)).Compose(sampleRequest())
	text := res.DraftText

	assert.True(t, strings.HasPrefix(text, "Subject: "))
	assert.Contains(t, text, "I am writing to bring to your attention a water supply issue that ")
	assert.Contains(t, text, "\n\nIssue Details:\n- Category: Water Supply\n- Description: No water supply for three days\n")
	assert.Contains(t, text, "- Location: 12B, MG Road, Andheri East, PIN: 400069\n- Region: Maharashtra\n\n")
	assert.Contains(t, text, "Personal Information:\n- Name: Asha Verma\n- Contact: 9876543210\n- Email: asha@example.com\n\n")
	assert.True(t, strings.HasSuffix(text, "\nAsha Verma\n9876543210"))

	lines := strings.Split(text, "\n")
	subject := strings.TrimPrefix(lines[0], "Subject: ")
	var wantSubjects []string
	for _, s := range subjects {
		wantSubjects = append(wantSubjects, fill(s, "Water Supply", "Maharashtra", ""))
	}
	assert.Contains(t, wantSubjects, subject)
	assert.Contains(t, signOffs[:], lines[len(lines)-3])
}

func TestComposeBodyBuckets(t *testing.T) {
	cases := map[string]string{
		"Sewage":          "bring to your attention a sewage issue",
		"Power Cut":       "report a power cut problem",
		"Roads":           "bring to your notice a roads issue",
		"Garbage":         "report a garbage management issue",
		"Street Lighting": "bring to your attention a street lighting issue",
	}
	g := NewGenerator(nil, WithSeed(3))
	for category, want := range cases {
		req := sampleRequest()
		req.Category = category
		assert.Contains(t, g.Compose(req).DraftText, want, category)
	}
}

func TestComposeIsReproducibleWithSeed(t *testing.T) {
	a := NewGenerator(nil, WithSeed(99))
	b := NewGenerator(nil, WithSeed(99))
	for range 5 {
		assert.Equal(t, a.Compose(sampleRequest()), b.Compose(sampleRequest()))
	}
}

func TestAuthorityFor(t *testing.T) {
	a := AuthorityFor(" Solid Waste Management ", 12345678)
	assert.Equal(t, types.Authority{
		Name:  "Solid Waste Management Department - Municipal Corporation",
		Email: "solid.waste.management@examplecity.gov.in",
		Phone: "+91-22-12345678",
	}, a)
}

func TestComposeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	g := NewGenerator(&fakeRemote{err: errors.New("unreachable")})

	properties.Property("fallback letter carries every request field", prop.ForAll(
		func(desc, category, house, line1, line2, pin, name string) bool {
			req := types.DraftRequest{
				UserInfo:         types.UserInfo{FullName: name, Mobile: "9000000000"},
				Address:          types.Address{HouseNo: house, AddressLine1: line1, AddressLine2: line2, PinCode: pin},
				IssueDescription: "d" + desc,
				Category:         "c" + category,
				Region:           "Kerala",
			}
			res, err := g.Generate(context.Background(), req)
			if err != nil || !res.FallbackUsed {
				return false
			}
			for _, want := range []string{req.IssueDescription, req.Category, house, line1, line2, "PIN: " + pin, name, "Kerala"} {
				if !strings.Contains(res.DraftText, want) {
					return false
				}
			}
			return phonePattern.MatchString(res.Authority.Phone)
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
		gen.AlphaString(), gen.NumString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
