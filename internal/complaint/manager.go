// Package complaint manages one citizen's complaints: filing a reviewed
// draft, tracking status and resolving with optimistic local updates.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"janai-go/internal/apperr"
	"janai-go/internal/logger"
	"janai-go/internal/types"
)

var ErrAlreadyResolved = errors.New("complaint is already resolved")

// Backend is the remote complaint store.
type Backend interface {
	FileComplaint(ctx context.Context, req types.FileComplaintRequest) (types.FileComplaintResponse, error)
	ResolveComplaint(ctx context.Context, id string) error
	GetComplaints(ctx context.Context, userID string) ([]types.Complaint, error)
}

// Submission is a complaint the citizen has reviewed and confirmed.
type Submission struct {
	UserInfo         types.UserInfo
	Address          types.Address
	IssueDescription string
	Category         string
	Region           string
	Draft            *types.DraftResult
	// Reviewed must be set once the citizen has confirmed the draft.
	Reviewed bool
}

// entry is a local complaint. rev increases on every local write so an
// in-flight rollback can detect that it has been overtaken. While pending,
// c.Status holds the unconfirmed optimistic value and remote the status to
// restore if the backend rejects it.
type entry struct {
	c       types.Complaint
	rev     uint64
	pending bool
	remote  types.ComplaintStatus
}

type Manager struct {
	userID  string
	backend Backend
	log     *logrus.Entry

	mu      sync.Mutex
	entries []*entry
}

type Option func(*Manager)

func WithLogger(log *logrus.Entry) Option {
	return func(m *Manager) { m.log = log }
}

func NewManager(userID string, backend Backend, opts ...Option) *Manager {
	m := &Manager{userID: strings.TrimSpace(userID), backend: backend}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Discard().Component("complaint")
	}
	m.log = m.log.WithField("user_id", m.userID)
	return m
}

func (m *Manager) UserID() string { return m.userID }

// Refresh replaces the local list with the backend's, merged by id.
// Entries with an unconfirmed resolve keep their local status; the
// backend's status becomes the rollback target.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.userID == "" {
		return apperr.Input("complaint.refresh", "user id is required")
	}
	list, err := m.backend.GetComplaints(ctx, m.userID)
	if err != nil {
		return apperr.Transport("complaint.refresh", err)
	}
	m.mu.Lock()
	byID := make(map[string]*entry, len(m.entries))
	for _, e := range m.entries {
		byID[e.c.ID] = e
	}
	entries := make([]*entry, 0, len(list))
	kept := 0
	for _, c := range list {
		e, ok := byID[c.ID]
		switch {
		case !ok:
			e = &entry{c: c}
		case e.pending:
			e.remote = c.Status
			c.Status = e.c.Status
			e.c = c
			kept++
		default:
			e.c = c
		}
		entries = append(entries, e)
	}
	m.entries = entries
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"count": len(entries), "pending": kept}).Debug("complaints refreshed")
	return nil
}

// Submit files s with the backend and records the created complaint.
// The authority email sent is the draft's at the time of the call.
func (m *Manager) Submit(ctx context.Context, s Submission) (types.FileComplaintResponse, error) {
	const op = "complaint.submit"
	switch {
	case m.userID == "":
		return types.FileComplaintResponse{}, apperr.Input(op, "user id is required")
	case s.Address.IsZero():
		return types.FileComplaintResponse{}, apperr.Input(op, "address is required")
	case strings.TrimSpace(s.IssueDescription) == "":
		return types.FileComplaintResponse{}, apperr.Input(op, "issue description is required")
	case strings.TrimSpace(s.Category) == "":
		return types.FileComplaintResponse{}, apperr.Input(op, "category is required")
	case strings.TrimSpace(s.Region) == "":
		return types.FileComplaintResponse{}, apperr.Input(op, "region is required")
	case !s.Reviewed:
		return types.FileComplaintResponse{}, apperr.Input(op, "complaint must be reviewed before submission")
	}

	user := s.UserInfo
	user.ID = m.userID
	req := types.FileComplaintRequest{
		UserID:           m.userID,
		UserInfo:         user,
		Address:          s.Address,
		IssueDescription: s.IssueDescription,
		Category:         s.Category,
		Region:           s.Region,
	}
	if s.Draft != nil {
		d := *s.Draft
		req.AIDraft = &d
		req.EditedAuthorityEmail = d.Authority.Email
	}

	resp, err := m.backend.FileComplaint(ctx, req)
	if err != nil {
		return types.FileComplaintResponse{}, apperr.Transport(op, err)
	}
	created := resp.Complaint
	if created.ID == "" {
		created.ID = resp.TrackingID
	}
	if created.Status == "" {
		created.Status = types.StatusSubmitted
	}
	resp.Complaint = created

	m.mu.Lock()
	m.entries = append(m.entries, &entry{c: created})
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"tracking_id": resp.TrackingID,
		"category":    created.Category,
	}).Info("complaint filed")
	return resp, nil
}

// Resolve marks id resolved immediately and confirms with the backend. On
// failure the backend's last known status is restored unless the complaint
// was replaced in the meantime.
func (m *Manager) Resolve(ctx context.Context, id string) error {
	const op = "complaint.resolve"

	m.mu.Lock()
	e := m.findLocked(id)
	if e == nil {
		m.mu.Unlock()
		return apperr.Input(op, "unknown complaint %q", id)
	}
	if e.c.Status == types.StatusResolved {
		m.mu.Unlock()
		return fmt.Errorf("%s %s: %w", op, id, ErrAlreadyResolved)
	}
	e.remote = e.c.Status
	e.c.Status = types.StatusResolved
	e.pending = true
	e.rev++
	rev := e.rev
	m.mu.Unlock()

	log := m.log.WithField("complaint_id", id)
	err := m.backend.ResolveComplaint(ctx, id)

	m.mu.Lock()
	current := m.findLocked(id) == e && e.rev == rev
	if current {
		e.pending = false
		if err != nil {
			e.c.Status = e.remote
			e.rev++
		}
	}
	m.mu.Unlock()

	if err != nil {
		log.WithError(err).WithField("rolled_back", current).Warn("resolve not confirmed")
		return apperr.Transport(op, err)
	}
	log.Info("complaint resolved")
	return nil
}

// Complaints returns a copy of the local list.
func (m *Manager) Complaints() []types.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Complaint, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.c)
	}
	return out
}

func (m *Manager) Get(id string) (types.Complaint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.findLocked(id); e != nil {
		return e.c, true
	}
	return types.Complaint{}, false
}

// Filter matches category case-insensitively and status exactly. Empty
// arguments match everything.
func (m *Manager) Filter(category string, status types.ComplaintStatus) []types.Complaint {
	category = strings.TrimSpace(category)
	var out []types.Complaint
	for _, c := range m.Complaints() {
		if category != "" && !strings.EqualFold(c.Category, category) {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *Manager) findLocked(id string) *entry {
	for _, e := range m.entries {
		if e.c.ID == id {
			return e
		}
	}
	return nil
}
