// Package draft produces complaint letters addressed to the responsible
// authority. A remote generator is preferred; when it fails the letter is
// composed locally from phrase pools so that the citizen always gets a draft.
package draft

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/logger"
	"janai-go/internal/types"
)

// ErrorPrefix is how the remote generator reports a failure in-band.
const ErrorPrefix = "Error generating complaint draft:"

const authorityDomain = "examplecity.gov.in"

type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "failed"
}

// RemoteDraft is the remote generator's answer, with in-band failures
// already translated into Status by the adapter.
type RemoteDraft struct {
	Status    Status
	Draft     string
	Authority types.Authority
	Reason    string
}

type Remote interface {
	GenerateDraft(ctx context.Context, req types.DraftRequest) (RemoteDraft, error)
}

type Generator struct {
	remote Remote
	log    *logrus.Entry

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

// WithSeed makes the fallback letter reproducible. Zero keeps time seeding.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		if seed != 0 {
			g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(g *Generator) { g.log = log }
}

func NewGenerator(remote Remote, opts ...Option) *Generator {
	g := &Generator{remote: remote}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		now := uint64(time.Now().UnixNano())
		g.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	if g.log == nil {
		g.log = logger.Discard().Component("draft")
	}
	return g
}

// Generate returns a complete draft for req. Only blank category or
// description is an error; remote failures fall back to Compose.
func (g *Generator) Generate(ctx context.Context, req types.DraftRequest) (types.DraftResult, error) {
	if strings.TrimSpace(req.Category) == "" {
		return types.DraftResult{}, apperr.Input("draft.generate", "category is required")
	}
	if strings.TrimSpace(req.IssueDescription) == "" {
		return types.DraftResult{}, apperr.Input("draft.generate", "issue description is required")
	}
	log := g.log.WithFields(logrus.Fields{"category": req.Category, "region": req.Region})

	if g.remote == nil {
		return g.Compose(req), nil
	}
	rd, err := g.remote.GenerateDraft(ctx, req)
	switch {
	case err != nil:
		log.WithError(err).Warn("remote draft failed, composing locally")
	case rd.Status != StatusOK:
		log.WithField("reason", rd.Reason).Warn("remote draft reported failure, composing locally")
	case !wellFormed(rd):
		log.Warn("remote draft malformed, composing locally")
	default:
		log.Info("remote draft generated")
		return types.DraftResult{DraftText: rd.Draft, Authority: rd.Authority}, nil
	}
	return g.Compose(req), nil
}

func wellFormed(rd RemoteDraft) bool {
	return strings.TrimSpace(rd.Draft) != "" &&
		!strings.HasPrefix(strings.TrimSpace(rd.Draft), ErrorPrefix) &&
		strings.TrimSpace(rd.Authority.Name) != "" &&
		strings.TrimSpace(rd.Authority.Email) != ""
}

// Compose builds the letter locally.
func (g *Generator) Compose(req types.DraftRequest) types.DraftResult {
	g.mu.Lock()
	subject := subjects[g.rng.IntN(len(subjects))]
	opening := openings[g.rng.IntN(len(openings))]
	urgency := urgencies[g.rng.IntN(len(urgencies))]
	impact := impacts[g.rng.IntN(len(impacts))]
	closing := closings[g.rng.IntN(len(closings))]
	thank := thanks[g.rng.IntN(len(thanks))]
	signOff := signOffs[g.rng.IntN(len(signOffs))]
	phone := 10000000 + g.rng.IntN(90000000)
	g.mu.Unlock()

	category, region := req.Category, req.Region
	user, addr := req.UserInfo, req.Address

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n\n", fill(subject, category, region, urgency))
	fmt.Fprintf(&b, "%s\n\n", fill(opening, category, region, urgency))
	fmt.Fprintf(&b, "%s\n\n", fill(bodyOpening(category), strings.ToLower(category), region, urgency))
	b.WriteString("Issue Details:\n")
	fmt.Fprintf(&b, "- Category: %s\n", category)
	fmt.Fprintf(&b, "- Description: %s\n", req.IssueDescription)
	fmt.Fprintf(&b, "- Location: %s, %s, %s, PIN: %s\n", addr.HouseNo, addr.AddressLine1, addr.AddressLine2, addr.PinCode)
	fmt.Fprintf(&b, "- Region: %s\n\n", region)
	b.WriteString("Personal Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", user.FullName)
	fmt.Fprintf(&b, "- Contact: %s\n", user.Mobile)
	fmt.Fprintf(&b, "- Email: %s\n\n", user.Email)
	fmt.Fprintf(&b, "%s %s\n\n", impact, closing)
	fmt.Fprintf(&b, "%s\n\n", thank)
	fmt.Fprintf(&b, "%s\n%s\n%s", signOff, user.FullName, user.Mobile)

	return types.DraftResult{
		DraftText:    b.String(),
		Authority:    AuthorityFor(category, phone),
		FallbackUsed: true,
	}
}

// AuthorityFor derives the municipal department contact for a category.
func AuthorityFor(category string, phone int) types.Authority {
	category = strings.TrimSpace(category)
	return types.Authority{
		Name:  category + " Department - Municipal Corporation",
		Email: strings.ReplaceAll(strings.ToLower(category), " ", ".") + "@" + authorityDomain,
		Phone: fmt.Sprintf("+91-22-%08d", phone),
	}
}
