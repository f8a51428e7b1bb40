// Package caserecord defines the case-tracking aggregate: a judicial case
// registered by a user, the parties to the process, and the procedural acts
// published by the external portal.
package caserecord

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// PartyRole identifies the procedural role of a party.
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff"
	RoleDefendant PartyRole = "defendant"
	RoleOther     PartyRole = "other"
)

// Classification values for a procedural act.  An empty string means the act
// has not been classified yet.
const (
	ClassificationPeremptory = "peremptory"
	ClassificationRoutine    = "routine"
)

// Classification sources.
const (
	SourceHeuristic = "heuristic"
	SourceAI        = "ai"
)

// StatusNotVerified is the default case status applied when neither the
// payload nor the stored record carries one.
const StatusNotVerified = "not verified"

// radicadoPattern matches the 23-digit external case identifier.
var radicadoPattern = regexp.MustCompile(`^\d{23}$`)

// CaseRecord is the aggregate root.  It is owned exclusively by the
// registering user; Parties and Acts are loaded relations and may be nil when
// the record was fetched without them.
type CaseRecord struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Radicado     string     `json:"radicado"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	Court        string     `json:"court,omitempty"`
	Office       string     `json:"office,omitempty"`
	ProcessType  string     `json:"process_type,omitempty"`
	Status       string     `json:"status,omitempty"`
	Source       string     `json:"source,omitempty"`
	HasUnread    bool       `json:"has_unread"`
	Verified     bool       `json:"verified"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`

	// Extended portal metadata.
	ExternalProcessID string     `json:"external_process_id,omitempty"`
	FiledAt           *time.Time `json:"filed_at,omitempty"`
	LastActAt         *time.Time `json:"last_act_at,omitempty"`
	Rapporteur        string     `json:"rapporteur,omitempty"`
	ProcessClass      string     `json:"process_class,omitempty"`
	ProcessSubclass   string     `json:"process_subclass,omitempty"`
	DocketLocation    string     `json:"docket_location,omitempty"`
	Remedy            string     `json:"remedy,omitempty"`
	FilingContent     string     `json:"filing_content,omitempty"`

	Parties []Party         `json:"parties,omitempty"`
	Acts    []ProceduralAct `json:"acts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Party is a participant in the process.  Lifecycle is full-replace: all
// rows for a case are deleted and recreated on every successful sync.
type Party struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	Role       PartyRole `json:"role"`
	Name       string    `json:"name"`
	DocumentID string    `json:"document_id,omitempty"`
}

// ProceduralAct is one act published for a case.  UniqueKey is unique within
// the case: the external id when present, otherwise a stable hash of the
// act's content fields.  Acts are upserted, never duplicated.
type ProceduralAct struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"case_id"`
	UniqueKey   string     `json:"unique_key"`
	Date        *time.Time `json:"date,omitempty"`
	Type        string     `json:"type,omitempty"`
	Description string     `json:"description,omitempty"`
	DocumentURL string     `json:"document_url,omitempty"`
	Origin      string     `json:"origin,omitempty"`

	// Classification is empty until the act is classified.  Confidence and
	// Source are only meaningful alongside a non-empty Classification.
	Classification       string     `json:"classification,omitempty"`
	Confidence           float64    `json:"confidence,omitempty"`
	ClassificationSource string     `json:"classification_source,omitempty"`
	ClassificationReason string     `json:"classification_reason,omitempty"`
	ClassifiedAt         *time.Time `json:"classified_at,omitempty"`
	Notified             bool       `json:"notified"`

	// Deadline fields reported by the portal.
	RegistryActID    string     `json:"registry_act_id,omitempty"`
	Sequence         string     `json:"sequence,omitempty"`
	InitialDate      *time.Time `json:"initial_date,omitempty"`
	FinalDate        *time.Time `json:"final_date,omitempty"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
	RuleCode         string     `json:"rule_code,omitempty"`
}

// NewCaseRecord constructs a CaseRecord for a registered radicado.
func NewCaseRecord(ownerID, radicado string) (*CaseRecord, error) {
	if ownerID == "" {
		return nil, errors.NewValidation("owner id cannot be empty")
	}
	if !radicadoPattern.MatchString(radicado) {
		return nil, errors.NewValidation("radicado must be a 23-digit identifier").
			WithDetail("radicado=" + radicado)
	}
	now := time.Now().UTC()
	return &CaseRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Radicado:  radicado,
		Status:    StatusNotVerified,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// orderMarkers are the type/description substrings that identify an act as a
// judicial order eligible for urgency classification.
var orderMarkers = []string{"auto", "providencia", "resolucion", "resolución"}

// IsOrder reports whether the act looks like a judicial order, as opposed to
// a filing, hearing record, or other procedural artifact.  Only orders run
// through the urgency classifier.
func (a *ProceduralAct) IsOrder() bool {
	typ := strings.ToLower(a.Type)
	desc := strings.ToLower(a.Description)
	for _, marker := range orderMarkers {
		if strings.Contains(typ, marker) || strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

// IsClassified reports whether the act carries a classification.
func (a *ProceduralAct) IsClassified() bool {
	return a.Classification != ""
}

// ClassificationText assembles the text fed to the classifier from the act's
// type and description.
func (a *ProceduralAct) ClassificationText() string {
	var parts []string
	if a.Type != "" {
		parts = append(parts, "TIPO: "+a.Type)
	}
	if a.Description != "" {
		parts = append(parts, "DESCRIPCION: "+a.Description)
	}
	return strings.Join(parts, "\n\n")
}
