package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

const caseColumns = `
	id, owner_id, radicado, jurisdiction, court, office, process_type,
	status, source, has_unread, verified, last_checked_at, last_seen_at,
	external_process_id, filed_at, last_act_at, rapporteur, process_class,
	process_subclass, docket_location, remedy, filing_content,
	created_at, updated_at`

const actColumns = `
	id, case_id, unique_key, date, type, description, document_url, origin,
	classification, confidence, classification_source, classification_reason,
	classified_at, notified, registry_act_id, sequence, initial_date,
	final_date, registration_date, rule_code`

// CaseRepository implements caserecord.Repository on a pgx pool.
type CaseRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewCaseRepository(pool *pgxpool.Pool, log logging.Logger) *CaseRepository {
	return &CaseRepository{pool: pool, logger: log.Named("case_repo")}
}

func (r *CaseRepository) Create(ctx context.Context, rec *caserecord.CaseRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO case_records (
			id, owner_id, radicado, status, has_unread, verified,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.OwnerID, rec.Radicado, rec.Status, rec.HasUnread,
		rec.Verified, rec.CreatedAt, rec.UpdatedAt,
	)
	return mapError(err, "case")
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM case_records WHERE id = $1`, id)
	return scanCase(row)
}

func (r *CaseRepository) GetByRadicado(ctx context.Context, ownerID, radicado string) (*caserecord.CaseRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM case_records WHERE owner_id = $1 AND radicado = $2`,
		ownerID, radicado)
	return scanCase(row)
}

func (r *CaseRepository) GetWithRelations(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, role, name, document_id
		FROM case_parties WHERE case_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, mapError(err, "case parties")
	}
	defer rows.Close()
	for rows.Next() {
		var p caserecord.Party
		if err := rows.Scan(&p.ID, &p.CaseID, &p.Role, &p.Name, &p.DocumentID); err != nil {
			return nil, mapError(err, "case parties")
		}
		rec.Parties = append(rec.Parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "case parties")
	}

	rec.Acts, err = r.GetActs(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *CaseRepository) GetActs(ctx context.Context, caseID string) ([]caserecord.ProceduralAct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actColumns+` FROM procedural_acts
		 WHERE case_id = $1 ORDER BY date DESC NULLS LAST, id`, caseID)
	if err != nil {
		return nil, mapError(err, "procedural acts")
	}
	defer rows.Close()

	var acts []caserecord.ProceduralAct
	for rows.Next() {
		act, err := scanAct(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, *act)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "procedural acts")
	}
	return acts, nil
}

// ApplySync runs the three-step sync in one transaction: update the case row,
// fully replace its parties, and upsert acts by (case_id, unique_key).
func (r *CaseRepository) ApplySync(ctx context.Context, rec *caserecord.CaseRecord, parties []caserecord.Party, acts []caserecord.ProceduralAct) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapError(err, "case")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE case_records SET
			jurisdiction = $2, court = $3, office = $4, process_type = $5,
			status = $6, source = $7, has_unread = $8, verified = $9,
			last_checked_at = $10, last_seen_at = $11,
			external_process_id = $12, filed_at = $13, last_act_at = $14,
			rapporteur = $15, process_class = $16, process_subclass = $17,
			docket_location = $18, remedy = $19, filing_content = $20,
			updated_at = $21
		WHERE id = $1`,
		rec.ID, rec.Jurisdiction, rec.Court, rec.Office, rec.ProcessType,
		rec.Status, rec.Source, rec.HasUnread, rec.Verified,
		rec.LastCheckedAt, rec.LastSeenAt,
		rec.ExternalProcessID, rec.FiledAt, rec.LastActAt,
		rec.Rapporteur, rec.ProcessClass, rec.ProcessSubclass,
		rec.DocketLocation, rec.Remedy, rec.FilingContent,
		rec.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "case")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("case")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM case_parties WHERE case_id = $1`, rec.ID); err != nil {
		return mapError(err, "case parties")
	}
	for _, p := range parties {
		if _, err := tx.Exec(ctx, `
			INSERT INTO case_parties (case_id, role, name, document_id)
			VALUES ($1, $2, $3, $4)`,
			rec.ID, p.Role, p.Name, p.DocumentID,
		); err != nil {
			return mapError(err, "case parties")
		}
	}

	for _, act := range acts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO procedural_acts (
				case_id, unique_key, date, type, description, document_url,
				origin, classification, confidence, classification_source,
				classification_reason, classified_at, notified,
				registry_act_id, sequence, initial_date, final_date,
				registration_date, rule_code
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19
			)
			ON CONFLICT (case_id, unique_key) DO UPDATE SET
				date = EXCLUDED.date,
				type = EXCLUDED.type,
				description = EXCLUDED.description,
				document_url = EXCLUDED.document_url,
				origin = EXCLUDED.origin,
				classification = EXCLUDED.classification,
				confidence = EXCLUDED.confidence,
				classification_source = EXCLUDED.classification_source,
				classification_reason = EXCLUDED.classification_reason,
				classified_at = EXCLUDED.classified_at,
				registry_act_id = EXCLUDED.registry_act_id,
				sequence = EXCLUDED.sequence,
				initial_date = EXCLUDED.initial_date,
				final_date = EXCLUDED.final_date,
				registration_date = EXCLUDED.registration_date,
				rule_code = EXCLUDED.rule_code`,
			act.CaseID, act.UniqueKey, act.Date, act.Type, act.Description,
			act.DocumentURL, act.Origin, act.Classification, act.Confidence,
			act.ClassificationSource, act.ClassificationReason,
			act.ClassifiedAt, act.Notified, act.RegistryActID, act.Sequence,
			act.InitialDate, act.FinalDate, act.RegistrationDate, act.RuleCode,
		); err != nil {
			return mapError(err, "procedural acts")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "case")
	}
	return nil
}

func (r *CaseRepository) MarkActsNotified(ctx context.Context, caseID string, uniqueKeys []string) error {
	if len(uniqueKeys) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE procedural_acts SET notified = true
		WHERE case_id = $1 AND unique_key = ANY($2)`,
		caseID, uniqueKeys)
	return mapError(err, "procedural acts")
}

// ListForSync picks cases never checked or checked before the cutoff, oldest
// first, so a slow pass still reaches every case eventually.
func (r *CaseRepository) ListForSync(ctx context.Context, checkedBefore time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM case_records
		WHERE last_checked_at IS NULL OR last_checked_at < $1
		ORDER BY last_checked_at ASC NULLS FIRST
		LIMIT $2`,
		checkedBefore, limit)
	if err != nil {
		return nil, mapError(err, "case")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "case")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "case")
	}
	return ids, nil
}

func scanCase(row pgx.Row) (*caserecord.CaseRecord, error) {
	var rec caserecord.CaseRecord
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Radicado, &rec.Jurisdiction, &rec.Court,
		&rec.Office, &rec.ProcessType, &rec.Status, &rec.Source,
		&rec.HasUnread, &rec.Verified, &rec.LastCheckedAt, &rec.LastSeenAt,
		&rec.ExternalProcessID, &rec.FiledAt, &rec.LastActAt,
		&rec.Rapporteur, &rec.ProcessClass, &rec.ProcessSubclass,
		&rec.DocketLocation, &rec.Remedy, &rec.FilingContent,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "case")
	}
	return &rec, nil
}

func scanAct(row pgx.Row) (*caserecord.ProceduralAct, error) {
	var act caserecord.ProceduralAct
	err := row.Scan(
		&act.ID, &act.CaseID, &act.UniqueKey, &act.Date, &act.Type,
		&act.Description, &act.DocumentURL, &act.Origin,
		&act.Classification, &act.Confidence, &act.ClassificationSource,
		&act.ClassificationReason, &act.ClassifiedAt, &act.Notified,
		&act.RegistryActID, &act.Sequence, &act.InitialDate, &act.FinalDate,
		&act.RegistrationDate, &act.RuleCode,
	)
	if err != nil {
		return nil, mapError(err, "procedural act")
	}
	return &act, nil
}
