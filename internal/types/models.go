package types

import (
	"net/mail"
	"strings"

	"janai-go/internal/apperr"
)

// LanguageProfile describes one supported input language.
type LanguageProfile struct {
	Code        string   `yaml:"code" json:"code"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	NativeName  string   `yaml:"native_name" json:"native_name"`
	Region      string   `yaml:"region" json:"region"`
	EngineCode  string   `yaml:"engine_code,omitempty" json:"engine_code,omitempty"`
	Keywords    []string `yaml:"keywords" json:"keywords,omitempty"`
}

// SpeechEngineCode is the tag handed to the speech engine.
func (p LanguageProfile) SpeechEngineCode() string {
	if p.EngineCode != "" {
		return p.EngineCode
	}
	return p.Code
}

type Level string

const (
	LevelCentral Level = "Central"
	LevelState   Level = "State"
)

// HelplineEntry is a directory record. The core filters these, never edits them.
type HelplineEntry struct {
	Service      string `json:"service"`
	Number       string `json:"number"`
	Level        Level  `json:"level"`
	State        string `json:"state,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Website      string `json:"website,omitempty"`
	Email        string `json:"email,omitempty"`
	Availability string `json:"availability,omitempty"`
}

func (h HelplineEntry) SearchFields() (string, string) { return h.Service, h.Notes }

type Scheme struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Eligibility string `json:"eligibility,omitempty"`
	Benefits    string `json:"benefits,omitempty"`
	Website     string `json:"website,omitempty"`
}

func (s Scheme) SearchFields() (string, string) { return s.Name, s.Category + " " + s.Description }

// SchemeProfile is the citizen profile used to look up welfare schemes.
type SchemeProfile struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
}

// ClassificationResult is produced once per submitted transcript.
type ClassificationResult struct {
	SourceText       string          `json:"source_text"`
	DetectedLanguage string          `json:"detected_language"`
	DetectedRegion   string          `json:"detected_region"`
	EmergencyType    string          `json:"emergency_type"`
	Helplines        []HelplineEntry `json:"helplines"`
	FallbackUsed     bool            `json:"fallback_used"`
	Note             string          `json:"note,omitempty"`
}

type Address struct {
	HouseNo      string `json:"houseNo"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	PinCode      string `json:"pinCode"`
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(a.HouseNo+a.AddressLine1+a.AddressLine2+a.PinCode) == ""
}

type UserInfo struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
}

type DraftRequest struct {
	UserInfo         UserInfo `json:"userInfo"`
	Address          Address  `json:"address"`
	IssueDescription string   `json:"issueDescription"`
	Category         string   `json:"category"`
	Region           string   `json:"region"`
}

type Authority struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// DraftResult is a complaint letter ready for review. Change it only
// through BeginEdit and SaveEdit.
type DraftResult struct {
	DraftText    string    `json:"draft"`
	Authority    Authority `json:"authority"`
	FallbackUsed bool      `json:"fallback_used"`
}

// DraftEdit is a staged, uncommitted edit of a DraftResult.
type DraftEdit struct {
	DraftText      string `json:"draft"`
	AuthorityEmail string `json:"authority_email"`
}

// BeginEdit stages the current values for editing. Dropping the returned
// value cancels the edit.
func (d *DraftResult) BeginEdit() DraftEdit {
	return DraftEdit{DraftText: d.DraftText, AuthorityEmail: d.Authority.Email}
}

// SaveEdit commits both fields or neither.
func (d *DraftResult) SaveEdit(e DraftEdit) error {
	if strings.TrimSpace(e.DraftText) == "" {
		return apperr.Input("draft.save", "draft text must not be empty")
	}
	email := strings.TrimSpace(e.AuthorityEmail)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Input("draft.save", "invalid authority email %q", e.AuthorityEmail)
	}
	d.DraftText = e.DraftText
	d.Authority.Email = email
	return nil
}

type ComplaintStatus string

const (
	StatusSubmitted ComplaintStatus = "Submitted"
	StatusPending   ComplaintStatus = "Pending"
	StatusResolved  ComplaintStatus = "Issue Resolved"
)

type Complaint struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Address     Address         `json:"address"`
	Status      ComplaintStatus `json:"status"`
	Authority   Authority       `json:"authority"`
	Date        string          `json:"date"`
	AIDraft     *DraftResult    `json:"aiDraft,omitempty"`
}

// FileComplaintRequest is the payload of the fileComplaint backend call.
type FileComplaintRequest struct {
	UserID               string       `json:"userId"`
	UserInfo             UserInfo     `json:"userInfo"`
	Address              Address      `json:"address"`
	IssueDescription     string       `json:"issueDescription"`
	Category             string       `json:"category"`
	Region               string       `json:"region"`
	AIDraft              *DraftResult `json:"aiDraft,omitempty"`
	EditedAuthorityEmail string       `json:"editedAuthorityEmail,omitempty"`
}

type FileComplaintResponse struct {
	TrackingID  string         `json:"trackingId"`
	Complaint   Complaint      `json:"complaint"`
	EmailStatus map[string]any `json:"emailStatus,omitempty"`
}
