package api

import (
	"net/http"
	"strings"
	"time"

	"janai-go/internal/actionable"
	"janai-go/internal/aggregator"
	"janai-go/internal/apperr"
	"janai-go/internal/complaint"
	"janai-go/internal/processor"
	"janai-go/internal/types"
)

type languagesResponse struct {
	Default   string                  `json:"default"`
	Preferred string                  `json:"preferred"`
	Languages []types.LanguageProfile `json:"languages"`
}

func (s *Server) languages(w http.ResponseWriter, r *http.Request) {
	reg := s.deps.Registry
	s.reply(w, r, "languages", http.StatusOK, languagesResponse{
		Default:   reg.DefaultCode(),
		Preferred: reg.Preferred(r.Header.Get("Accept-Language")).Code,
		Languages: reg.Profiles(),
	})
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Detected bool                  `json:"detected"`
	Language types.LanguageProfile `json:"language"`
}

func (s *Server) detectLanguage(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, "detect_language", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(w, r, "detect_language", apperr.Input("api.detect", "text is required"))
		return
	}
	p, ok := s.deps.Registry.Detect(req.Text)
	if !ok {
		p, _ = s.deps.Registry.Lookup(s.deps.Registry.DefaultCode())
	}
	s.reply(w, r, "detect_language", http.StatusOK, detectResponse{Detected: ok, Language: p})
}

type classifyRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Region   string `json:"region"`
}

type classifyResponse struct {
	types.ClassificationResult
	SuggestedRegion string `json:"suggested_region,omitempty"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	defer s.timed(r, "classify", time.Now())
	var req classifyRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, "classify", err)
		return
	}
	res, err := s.deps.Classifier.Classify(r.Context(), req.Text, req.Language, req.Region)
	if err != nil {
		s.fail(w, r, "classify", err)
		return
	}
	out := classifyResponse{ClassificationResult: res}
	out.SuggestedRegion, _ = processor.SuggestRegion(res)
	s.reply(w, r, "classify", http.StatusOK, out)
}

func (s *Server) draft(w http.ResponseWriter, r *http.Request) {
	defer s.timed(r, "draft", time.Now())
	var req types.DraftRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, "draft", err)
		return
	}
	res, err := s.deps.Drafter.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, "draft", err)
		return
	}
	s.reply(w, r, "draft", http.StatusOK, res)
}

// complaintRequest carries a reviewed complaint. Edit, when present, is
// applied to AIDraft before filing so an edited authority email is the one
// that gets sent.
type complaintRequest struct {
	UserID           string             `json:"userId"`
	UserInfo         types.UserInfo     `json:"userInfo"`
	Address          types.Address      `json:"address"`
	IssueDescription string             `json:"issueDescription"`
	Category         string             `json:"category"`
	Region           string             `json:"region"`
	AIDraft          *types.DraftResult `json:"aiDraft,omitempty"`
	Edit             *types.DraftEdit   `json:"edit,omitempty"`
	Reviewed         bool               `json:"reviewed"`
}

func (s *Server) fileComplaint(w http.ResponseWriter, r *http.Request) {
	defer s.timed(r, "file_complaint", time.Now())
	var req complaintRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, "file_complaint", err)
		return
	}
	m, err := s.manager(req.UserID)
	if err != nil {
		s.fail(w, r, "file_complaint", err)
		return
	}
	if req.Edit != nil {
		if req.AIDraft == nil {
			s.fail(w, r, "file_complaint", apperr.Input("api.complaints", "edit without a draft"))
			return
		}
		if err := req.AIDraft.SaveEdit(*req.Edit); err != nil {
			s.fail(w, r, "file_complaint", err)
			return
		}
	}
	resp, err := m.Submit(r.Context(), complaint.Submission{
		UserInfo:         req.UserInfo,
		Address:          req.Address,
		IssueDescription: req.IssueDescription,
		Category:         req.Category,
		Region:           req.Region,
		Draft:            req.AIDraft,
		Reviewed:         req.Reviewed,
	})
	if err != nil {
		s.fail(w, r, "file_complaint", err)
		return
	}
	s.reply(w, r, "file_complaint", http.StatusCreated, resp)
}

type complaintsResponse struct {
	Complaints []types.Complaint `json:"complaints"`
	Total      int               `json:"total"`
}

func (s *Server) listComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := s.manager(q.Get("userId"))
	if err != nil {
		s.fail(w, r, "list_complaints", err)
		return
	}
	if err := m.Refresh(r.Context()); err != nil {
		s.fail(w, r, "list_complaints", err)
		return
	}
	list := m.Filter(q.Get("category"), types.ComplaintStatus(q.Get("status")))
	if list == nil {
		list = []types.Complaint{}
	}
	s.reply(w, r, "list_complaints", http.StatusOK, complaintsResponse{Complaints: list, Total: len(list)})
}

type summaryResponse struct {
	Summary aggregator.Summary    `json:"summary"`
	Action  actionable.ActionCard `json:"action"`
}

func (s *Server) complaintSummary(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, "complaint_summary", err)
		return
	}
	if err := m.Refresh(r.Context()); err != nil {
		s.fail(w, r, "complaint_summary", err)
		return
	}
	sum := aggregator.Aggregate(m.Complaints())
	s.reply(w, r, "complaint_summary", http.StatusOK, summaryResponse{Summary: sum, Action: actionable.Generate(sum)})
}

func (s *Server) resolveComplaint(w http.ResponseWriter, r *http.Request) {
	defer s.timed(r, "resolve_complaint", time.Now())
	id := r.PathValue("id")
	m, err := s.manager(r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, "resolve_complaint", err)
		return
	}
	// a fresh manager has no local list yet
	if _, ok := m.Get(id); !ok {
		if err := m.Refresh(r.Context()); err != nil {
			s.fail(w, r, "resolve_complaint", err)
			return
		}
	}
	if err := m.Resolve(r.Context(), id); err != nil {
		s.fail(w, r, "resolve_complaint", err)
		return
	}
	c, _ := m.Get(id)
	s.reply(w, r, "resolve_complaint", http.StatusOK, c)
}

type helplinesResponse struct {
	Region    string                `json:"region"`
	Issue     string                `json:"issue,omitempty"`
	Helplines []types.HelplineEntry `json:"helplines"`
}

func (s *Server) helplines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region, issue := strings.TrimSpace(q.Get("region")), strings.TrimSpace(q.Get("issue"))
	hs, err := s.helpline.Helplines(r.Context(), region, issue)
	if err != nil {
		s.fail(w, r, "helplines", err)
		return
	}
	if hs == nil {
		hs = []types.HelplineEntry{}
	}
	s.reply(w, r, "helplines", http.StatusOK, helplinesResponse{Region: region, Issue: issue, Helplines: hs})
}

type schemesResponse struct {
	Schemes []types.Scheme `json:"schemes"`
	Total   int            `json:"total"`
}

func (s *Server) schemes(w http.ResponseWriter, r *http.Request) {
	var p types.SchemeProfile
	if err := decode(w, r, &p); err != nil {
		s.fail(w, r, "schemes", err)
		return
	}
	list, err := s.deps.Directory.Schemes(r.Context(), p)
	if err != nil {
		s.fail(w, r, "schemes", err)
		return
	}
	if list == nil {
		list = []types.Scheme{}
	}
	s.reply(w, r, "schemes", http.StatusOK, schemesResponse{Schemes: list, Total: len(list)})
}

type recordingRequest struct {
	RecordingURL string `json:"recordingUrl"`
	Language     string `json:"language"`
	Region       string `json:"region"`
}

func (s *Server) recordings(w http.ResponseWriter, r *http.Request) {
	defer s.timed(r, "recordings", time.Now())
	if s.recording == nil {
		s.fail(w, r, "recordings", apperr.Capability("api.recordings", "no transcription service configured"))
		return
	}
	var req recordingRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, "recordings", err)
		return
	}
	if strings.TrimSpace(req.RecordingURL) == "" {
		s.fail(w, r, "recordings", apperr.Input("api.recordings", "recordingUrl is required"))
		return
	}
	res, err := s.recording.Process(r.Context(), req.RecordingURL, req.Language, req.Region)
	if err != nil {
		s.fail(w, r, "recordings", err)
		return
	}
	s.reply(w, r, "recordings", http.StatusOK, res)
}
