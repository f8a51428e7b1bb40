package notification

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// RuleType discriminates the matcher variant carried by a rule.
type RuleType string

const (
	RuleKeyword  RuleType = "keyword"
	RuleParty    RuleType = "party"
	RuleCourt    RuleType = "court"
	RuleActType  RuleType = "act_type"
	RuleDeadline RuleType = "deadline"
)

// Matcher is the predicate owned by each rule variant.  Matching semantics
// are polymorphic per rule type; callers never branch on RuleType themselves.
type Matcher interface {
	// Matches reports whether the rule applies to the given case and change.
	Matches(rec *caserecord.CaseRecord, change caserecord.ChangeEvent) bool

	// Type returns the discriminator for persistence.
	Type() RuleType
}

// Rule is a user-defined notification rule.  Value holds the serialized
// matcher parameters; Matcher() materialises the variant.
type Rule struct {
	ID      string          `json:"id"`
	OwnerID string          `json:"owner_id"`
	Type    RuleType        `json:"rule_type"`
	Value   json.RawMessage `json:"rule_value"`
	Boost   int             `json:"priority_boost"`
	Enabled bool            `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRule constructs an enabled rule from a matcher.
func NewRule(ownerID string, m Matcher, boost int) (*Rule, error) {
	if ownerID == "" {
		return nil, errors.NewValidation("owner id cannot be empty")
	}
	if m == nil {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "rule matcher cannot be nil")
	}
	if boost < 0 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "priority boost cannot be negative")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to serialize rule matcher")
	}
	return &Rule{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Type:      m.Type(),
		Value:     raw,
		Boost:     boost,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Matcher materialises the matcher variant from the rule's type and value.
func (r *Rule) Matcher() (Matcher, error) {
	var m Matcher
	switch r.Type {
	case RuleKeyword:
		m = &KeywordMatcher{}
	case RuleParty:
		m = &PartyMatcher{}
	case RuleCourt:
		m = &CourtMatcher{}
	case RuleActType:
		m = &ActTypeMatcher{}
	case RuleDeadline:
		m = &DeadlineMatcher{}
	default:
		return nil, errors.Newf(errors.ErrCodeRuleInvalid, "unknown rule type %q", r.Type)
	}
	if len(r.Value) > 0 {
		if err := json.Unmarshal(r.Value, m); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRuleInvalid, "failed to decode rule value")
		}
	}
	return m, nil
}

// Matches applies the rule.  A disabled rule never matches; a rule whose
// value fails to decode never matches either, so one corrupt rule cannot
// block notification delivery.
func (r *Rule) Matches(rec *caserecord.CaseRecord, change caserecord.ChangeEvent) bool {
	if !r.Enabled {
		return false
	}
	m, err := r.Matcher()
	if err != nil {
		return false
	}
	return m.Matches(rec, change)
}

// KeywordMatcher matches when any configured keyword appears in the
// serialized change event, case-insensitively.
type KeywordMatcher struct {
	Keywords []string `json:"keywords"`
}

func (m *KeywordMatcher) Type() RuleType { return RuleKeyword }

func (m *KeywordMatcher) Matches(_ *caserecord.CaseRecord, change caserecord.ChangeEvent) bool {
	text := strings.ToLower(change.Serialized())
	for _, kw := range m.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// PartyMatcher matches when any configured name is a substring of any party
// name on the case.
type PartyMatcher struct {
	Parties []string `json:"parties"`
}

func (m *PartyMatcher) Type() RuleType { return RuleParty }

func (m *PartyMatcher) Matches(rec *caserecord.CaseRecord, _ caserecord.ChangeEvent) bool {
	if rec == nil {
		return false
	}
	for _, party := range rec.Parties {
		name := strings.ToLower(party.Name)
		for _, wanted := range m.Parties {
			if wanted != "" && strings.Contains(name, strings.ToLower(wanted)) {
				return true
			}
		}
	}
	return false
}

// CourtMatcher matches when the case's court is one of the configured courts
// (exact comparison, the portal reports court names canonically).
type CourtMatcher struct {
	Courts []string `json:"courts"`
}

func (m *CourtMatcher) Type() RuleType { return RuleCourt }

func (m *CourtMatcher) Matches(rec *caserecord.CaseRecord, _ caserecord.ChangeEvent) bool {
	if rec == nil {
		return false
	}
	for _, court := range m.Courts {
		if court == rec.Court {
			return true
		}
	}
	return false
}

// ActTypeMatcher matches when any configured act type is a substring of the
// change's act type, case-insensitively.
type ActTypeMatcher struct {
	ActTypes []string `json:"act_types"`
}

func (m *ActTypeMatcher) Type() RuleType { return RuleActType }

func (m *ActTypeMatcher) Matches(_ *caserecord.CaseRecord, change caserecord.ChangeEvent) bool {
	actType := strings.ToLower(change.ActType)
	for _, wanted := range m.ActTypes {
		if wanted != "" && strings.Contains(actType, strings.ToLower(wanted)) {
			return true
		}
	}
	return false
}

// deadlineWords are the serialized-event substrings that signal a deadline
// when the change carries no explicit deadline field.
var deadlineWords = []string{"termino", "término", "plazo"}

// DeadlineMatcher matches change events that carry a deadline, either as an
// explicit field or as a deadline word in the serialization.
type DeadlineMatcher struct{}

func (m *DeadlineMatcher) Type() RuleType { return RuleDeadline }

func (m *DeadlineMatcher) Matches(_ *caserecord.CaseRecord, change caserecord.ChangeEvent) bool {
	if change.Deadline != "" {
		return true
	}
	text := strings.ToLower(change.Serialized())
	for _, w := range deadlineWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
