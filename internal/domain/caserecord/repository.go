package caserecord

import (
	"context"
	"time"
)

// Repository is the persistence contract for the case aggregate.  The
// PostgreSQL implementation lives in
// internal/infrastructure/database/postgres/repositories.
type Repository interface {
	// Create persists a newly registered case.
	Create(ctx context.Context, rec *CaseRecord) error

	// GetByID loads a case without relations.
	GetByID(ctx context.Context, id string) (*CaseRecord, error)

	// GetByRadicado loads the owner's case for an external case number.
	GetByRadicado(ctx context.Context, ownerID, radicado string) (*CaseRecord, error)

	// GetWithRelations loads a case with its parties and acts (acts ordered
	// by date descending, the portal's presentation order).
	GetWithRelations(ctx context.Context, id string) (*CaseRecord, error)

	// GetActs loads all stored acts for a case.
	GetActs(ctx context.Context, caseID string) ([]ProceduralAct, error)

	// ApplySync atomically replaces the case's parties, upserts the given
	// acts by (case_id, unique_key), and updates the case row.  Either all
	// three steps commit or none do.
	ApplySync(ctx context.Context, rec *CaseRecord, parties []Party, acts []ProceduralAct) error

	// MarkActsNotified flags the given acts as already notified so a later
	// cycle does not re-alert on them.
	MarkActsNotified(ctx context.Context, caseID string, uniqueKeys []string) error

	// ListForSync returns ids of cases whose last check is older than
	// checkedBefore (or that were never checked), oldest first, capped at
	// limit.  The background worker feeds each id to the sync pipeline.
	ListForSync(ctx context.Context, checkedBefore time.Time, limit int) ([]string, error)
}
