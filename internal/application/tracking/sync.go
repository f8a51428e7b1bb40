package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/application/classification"
	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// CacheInvalidator is the slice of the redis cache the synchronizer needs.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// Synchronizer folds one normalized snapshot into the stored case: parties
// are fully replaced, acts upserted by unique key, the case row updated.
// Persistence is atomic; cache invalidation happens after commit and never
// fails the sync.
type Synchronizer struct {
	repo   caserecord.Repository
	cache  CacheInvalidator // nil disables invalidation
	logger logging.Logger
}

func NewSynchronizer(repo caserecord.Repository, cache CacheInvalidator, log logging.Logger) *Synchronizer {
	return &Synchronizer{
		repo:   repo,
		cache:  cache,
		logger: log.Named("sync"),
	}
}

// SyncFromPayload persists the snapshot onto rec.  stored holds the case's
// current acts; classifications carries verdicts for the acts this cycle
// classified, keyed by unique key.  Returns the reloaded case with relations.
func (s *Synchronizer) SyncFromPayload(
	ctx context.Context,
	rec *caserecord.CaseRecord,
	snap *ingest.Snapshot,
	stored []caserecord.ProceduralAct,
	classifications map[string]classification.Result,
) (*caserecord.CaseRecord, error) {
	parties := buildParties(rec.ID, snap.Parties)
	acts := mergeActs(rec.ID, snap.Acts, stored, classifications)
	applyCaseInfo(rec, snap.Case)

	now := time.Now().UTC()
	rec.Verified = true
	rec.LastCheckedAt = &now
	rec.UpdatedAt = now

	if err := s.repo.ApplySync(ctx, rec, parties, acts); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSyncFailed, "failed to persist case sync")
	}

	s.invalidate(ctx, rec)

	updated, err := s.repo.GetWithRelations(ctx, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSyncFailed, "failed to reload case after sync")
	}
	return updated, nil
}

// invalidate drops the read-side cache entries the sync made stale.  Errors
// are logged and swallowed: the database already holds the truth.
func (s *Synchronizer) invalidate(ctx context.Context, rec *caserecord.CaseRecord) {
	if s.cache == nil {
		return
	}
	keys := []string{
		"case.detail." + rec.ID,
		"cases.user." + rec.OwnerID,
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed after sync",
			logging.String("case_id", rec.ID),
			logging.Err(err),
		)
	}
}

func buildParties(caseID string, records []ingest.Record) []caserecord.Party {
	parties := make([]caserecord.Party, 0, len(records))
	for _, r := range records {
		name := r.First("name", "nombre")
		role := r.First("role", "rol")
		if name == "" && role == "" {
			continue
		}
		parties = append(parties, caserecord.Party{
			CaseID:     caseID,
			Role:       normalizeRole(role),
			Name:       name,
			DocumentID: r.First("documento", "document_id"),
		})
	}
	return parties
}

func normalizeRole(raw string) caserecord.PartyRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "plaintiff", "demandante", "accionante", "ejecutante":
		return caserecord.RolePlaintiff
	case "defendant", "demandado", "accionado", "ejecutado":
		return caserecord.RoleDefendant
	default:
		return caserecord.RoleOther
	}
}

// mergeActs builds the upsert set.  A field the payload omits keeps the
// stored value; classification is written only for acts this cycle flagged
// as classifiable orders.
func mergeActs(
	caseID string,
	records []ingest.Record,
	stored []caserecord.ProceduralAct,
	classifications map[string]classification.Result,
) []caserecord.ProceduralAct {
	byKey := make(map[string]caserecord.ProceduralAct, len(stored))
	for _, act := range stored {
		byKey[act.UniqueKey] = act
	}

	acts := make([]caserecord.ProceduralAct, 0, len(records))
	for _, r := range records {
		key := UniqueKeyFor(r)
		act, known := byKey[key]
		if !known {
			act = caserecord.ProceduralAct{CaseID: caseID, UniqueKey: key}
		}

		if v := r.First("date", "fecha"); v != "" {
			act.Date = parseDate(v)
		}
		if v := r.First("type", "tipo"); v != "" {
			act.Type = v
		}
		if v := r.First("title", "descripcion", "description"); v != "" {
			act.Description = v
		}
		if v := r.First("documento_url", "document_url"); v != "" {
			act.DocumentURL = v
		}
		if v := r.First("origen", "origin"); v != "" {
			act.Origin = v
		}

		// Deadline metadata from the registry.
		if v := r.First("id_reg_actuacion"); v != "" {
			act.RegistryActID = v
		}
		if v := r.First("cons_actuacion"); v != "" {
			act.Sequence = v
		}
		if v := r.First("fecha_inicial"); v != "" {
			act.InitialDate = parseDate(v)
		}
		if v := r.First("fecha_final"); v != "" {
			act.FinalDate = parseDate(v)
		}
		if v := r.First("fecha_registro"); v != "" {
			act.RegistrationDate = parseDate(v)
		}
		if v := r.First("cod_regla"); v != "" {
			act.RuleCode = v
		}

		if r.Bool("is_auto") {
			if res, ok := classifications[key]; ok {
				now := time.Now().UTC()
				act.Classification = res.Type
				act.Confidence = res.Confidence
				act.ClassificationSource = res.Source
				act.ClassificationReason = res.Reason
				act.ClassifiedAt = &now
			}
		}

		acts = append(acts, act)
	}
	return acts
}

// applyCaseInfo overlays the payload's case fields onto the record.  Every
// field falls back to its stored value when the payload omits it, so a
// partial crawl never erases known data.
func applyCaseInfo(rec *caserecord.CaseRecord, c ingest.Record) {
	if v := c.First("status", "estado_actual"); v != "" {
		rec.Status = v
	}
	if rec.Status == "" {
		rec.Status = caserecord.StatusNotVerified
	}
	if v := c.First("tipo_proceso", "process_type"); v != "" {
		rec.ProcessType = v
	}
	if v := c.First("court", "despacho", "juzgado"); v != "" {
		rec.Court = v
	}
	if v := c.First("juzgado", "court"); v != "" {
		rec.Office = v
	}
	if v := c.First("city", "jurisdiccion"); v != "" {
		rec.Jurisdiction = v
	}
	if v := c.First("id_proceso", "external_process_id"); v != "" {
		rec.ExternalProcessID = v
	}
	if v := c.First("fecha_radicacion"); v != "" {
		rec.FiledAt = parseDate(v)
	}
	if v := c.First("fecha_ultima_actuacion"); v != "" {
		rec.LastActAt = parseDate(v)
	}
	if v := c.First("ponente"); v != "" {
		rec.Rapporteur = v
	}
	if v := c.First("clase_proceso"); v != "" {
		rec.ProcessClass = v
	}
	if v := c.First("subclase_proceso"); v != "" {
		rec.ProcessSubclass = v
	}
	if v := c.First("ubicacion_expediente"); v != "" {
		rec.DocketLocation = v
	}
	if v := c.First("recurso"); v != "" {
		rec.Remedy = v
	}
	if v := c.First("contenido_radicacion"); v != "" {
		rec.FilingContent = v
	}
}
