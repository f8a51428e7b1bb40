// Package notification computes alert priorities from change events and the
// owner's rules, and manages the notification lifecycle.
package notification

import (
	"context"
	"strings"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/domain/notification"
)

// urgentKeywords force the maximum base priority when any of them appears
// anywhere in the serialized change, regardless of the change type.
var urgentKeywords = []string{
	"sentencia", "fallo", "termino", "plazo", "audiencia",
	"citacion", "notificacion personal", "medida cautelar",
}

// basePriority maps each change type to its starting priority.  A peremptory
// classification is urgent on its own: the verdict already encodes that the
// act demands action within a deadline, whatever words the portal used.
func basePriority(change caserecord.ChangeEvent) int {
	if change.Classification == caserecord.ClassificationPeremptory {
		return 8
	}
	content := strings.ToLower(change.Serialized())
	for _, kw := range urgentKeywords {
		if strings.Contains(content, kw) {
			return 8
		}
	}
	switch change.Type {
	case caserecord.ChangeNewAct:
		return 5
	case caserecord.ChangeStatusChange:
		return 7
	case caserecord.ChangePartyChange:
		return 4
	default:
		return 3
	}
}

// ComputePriority returns the clamped priority of one change for one owner:
// the base priority plus the boost of every enabled rule that matches.
func ComputePriority(rec *caserecord.CaseRecord, change caserecord.ChangeEvent, rules []notification.Rule) int {
	priority := basePriority(change)
	for i := range rules {
		if rules[i].Matches(rec, change) {
			priority += rules[i].Boost
		}
	}
	return notification.ClampPriority(priority)
}

// RuleLister is the slice of the rule repository the priority path needs.
type RuleLister interface {
	ListEnabled(ctx context.Context, ownerID string) ([]notification.Rule, error)
}
