package caserecord

import (
	"encoding/json"
	"time"
)

// ChangeType identifies what kind of change a sync cycle observed.
type ChangeType string

const (
	ChangeNewAct       ChangeType = "new_act"
	ChangeStatusChange ChangeType = "status_change"
	ChangePartyChange  ChangeType = "party_change"
)

// ChangeEvent describes one observed change on a case.  It is the input to
// the notification priority engine and the payload of the emitted
// case-changed event.
type ChangeEvent struct {
	Type     ChangeType `json:"type"`
	CaseID   string     `json:"case_id"`
	Radicado string     `json:"radicado"`
	ActType  string     `json:"act_type,omitempty"`
	ActDate  string     `json:"act_date,omitempty"`
	Detail   string     `json:"detail,omitempty"`
	Deadline string     `json:"deadline,omitempty"`
	// Classification carries the verdict for a new act when the pipeline
	// classified it in the same cycle; empty otherwise.
	Classification string         `json:"classification,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	ObservedAt     time.Time      `json:"observed_at"`
}

// Serialized returns the JSON form of the event.  Keyword-based rule matching
// and the urgent-keyword scan both search this serialization, mirroring how
// the change payload is stored in notification metadata.
func (e ChangeEvent) Serialized() string {
	b, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(b)
}
