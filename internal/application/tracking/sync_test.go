package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1128026Go/Arconte-sub000/internal/application/classification"
	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

const testRadicado = "11001310300120230001200"

// fakeRepo is an in-memory caserecord.Repository shared by the sync and
// pipeline tests.
type fakeRepo struct {
	rec          *caserecord.CaseRecord
	parties      []caserecord.Party
	acts         []caserecord.ProceduralAct
	applyErr     error
	notifiedKeys []string
	applyCalls   int
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	rec, err := caserecord.NewCaseRecord("user-1", testRadicado)
	require.NoError(t, err)
	return &fakeRepo{rec: rec}
}

func (f *fakeRepo) Create(ctx context.Context, rec *caserecord.CaseRecord) error {
	f.rec = rec
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	if f.rec == nil || f.rec.ID != id {
		return nil, errors.NotFound("case")
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeRepo) GetByRadicado(ctx context.Context, ownerID, radicado string) (*caserecord.CaseRecord, error) {
	if f.rec == nil || f.rec.OwnerID != ownerID || f.rec.Radicado != radicado {
		return nil, errors.NotFound("case")
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeRepo) GetWithRelations(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	rec, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Parties = append([]caserecord.Party(nil), f.parties...)
	rec.Acts = append([]caserecord.ProceduralAct(nil), f.acts...)
	return rec, nil
}

func (f *fakeRepo) GetActs(ctx context.Context, caseID string) ([]caserecord.ProceduralAct, error) {
	return append([]caserecord.ProceduralAct(nil), f.acts...), nil
}

func (f *fakeRepo) ApplySync(ctx context.Context, rec *caserecord.CaseRecord, parties []caserecord.Party, acts []caserecord.ProceduralAct) error {
	f.applyCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	cp := *rec
	f.rec = &cp
	f.parties = parties

	byKey := make(map[string]int, len(f.acts))
	for i, act := range f.acts {
		byKey[act.UniqueKey] = i
	}
	for _, act := range acts {
		if i, ok := byKey[act.UniqueKey]; ok {
			act.ID = f.acts[i].ID
			f.acts[i] = act
			continue
		}
		act.ID = uuid.NewString()
		f.acts = append(f.acts, act)
	}
	return nil
}

func (f *fakeRepo) MarkActsNotified(ctx context.Context, caseID string, uniqueKeys []string) error {
	f.notifiedKeys = append(f.notifiedKeys, uniqueKeys...)
	return nil
}

func (f *fakeRepo) ListForSync(ctx context.Context, checkedBefore time.Time, limit int) ([]string, error) {
	if f.rec == nil {
		return nil, nil
	}
	if f.rec.LastCheckedAt != nil && !f.rec.LastCheckedAt.Before(checkedBefore) {
		return nil, nil
	}
	return []string{f.rec.ID}, nil
}

type fakeCache struct {
	deleted []string
	err     error
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return f.err
}

func snapshot() *ingest.Snapshot {
	return &ingest.Snapshot{
		Case: ingest.Record{
			"status":       "Al Despacho",
			"despacho":     "Juzgado 1 Civil del Circuito de Bogotá",
			"tipo_proceso": "Ejecutivo",
		},
		Parties: []ingest.Record{
			{"role": "plaintiff", "name": "Banco Popular S.A.", "documento": "900123456"},
			{"rol": "demandado", "nombre": "María Rodríguez"},
		},
		Acts: []ingest.Record{
			{"fecha": "20/08/2026", "tipo": "Auto", "descripcion": "confiérase traslado por 3 días", "is_auto": true},
		},
	}
}

func TestSyncFromPayload_PersistsSnapshot(t *testing.T) {
	repo := newFakeRepo(t)
	cache := &fakeCache{}
	s := NewSynchronizer(repo, cache, logging.NewNopLogger())

	snap := snapshot()
	key := UniqueKeyFor(snap.Acts[0])
	classifications := map[string]classification.Result{
		key: {Type: caserecord.ClassificationPeremptory, Confidence: 0.9, Source: caserecord.SourceHeuristic, Reason: "plazo"},
	}

	updated, err := s.SyncFromPayload(context.Background(), repo.rec, snap, nil, classifications)
	require.NoError(t, err)

	assert.True(t, updated.Verified)
	require.NotNil(t, updated.LastCheckedAt)
	assert.Equal(t, "Al Despacho", updated.Status)
	assert.Equal(t, "Juzgado 1 Civil del Circuito de Bogotá", updated.Court)
	assert.Equal(t, "Ejecutivo", updated.ProcessType)

	require.Len(t, updated.Parties, 2)
	assert.Equal(t, caserecord.RolePlaintiff, updated.Parties[0].Role)
	assert.Equal(t, caserecord.RoleDefendant, updated.Parties[1].Role)
	assert.Equal(t, "María Rodríguez", updated.Parties[1].Name)

	require.Len(t, updated.Acts, 1)
	act := updated.Acts[0]
	assert.Equal(t, key, act.UniqueKey)
	assert.Equal(t, "2026-08-20", formatDate(act.Date))
	assert.Equal(t, caserecord.ClassificationPeremptory, act.Classification)
	assert.Equal(t, 0.9, act.Confidence)
	require.NotNil(t, act.ClassifiedAt)

	assert.Contains(t, cache.deleted, "case.detail."+updated.ID)
	assert.Contains(t, cache.deleted, "cases.user.user-1")
}

func TestSyncFromPayload_ClassificationGatedOnOrderFlag(t *testing.T) {
	repo := newFakeRepo(t)
	s := NewSynchronizer(repo, nil, logging.NewNopLogger())

	snap := snapshot()
	delete(snap.Acts[0], "is_auto")
	key := UniqueKeyFor(snap.Acts[0])
	classifications := map[string]classification.Result{
		key: {Type: caserecord.ClassificationPeremptory, Confidence: 0.9},
	}

	updated, err := s.SyncFromPayload(context.Background(), repo.rec, snap, nil, classifications)
	require.NoError(t, err)

	require.Len(t, updated.Acts, 1)
	assert.False(t, updated.Acts[0].IsClassified())
}

func TestSyncFromPayload_OmittedFieldsKeepStoredValues(t *testing.T) {
	repo := newFakeRepo(t)
	repo.rec.Status = "Activo"
	repo.rec.Court = "Juzgado 1"
	repo.rec.Rapporteur = "Dra. Gómez"
	s := NewSynchronizer(repo, nil, logging.NewNopLogger())

	stored := caserecord.ProceduralAct{
		ID:          "act-1",
		CaseID:      repo.rec.ID,
		UniqueKey:   "registry-42",
		Date:        parseDate("2026-08-01"),
		Type:        "Auto",
		Description: "texto original",
		DocumentURL: "https://docs/42",
	}
	repo.acts = []caserecord.ProceduralAct{stored}

	snap := &ingest.Snapshot{
		Case: ingest.Record{}, // crawl returned no case fields
		Acts: []ingest.Record{
			{"uniq_key": "registry-42", "descripcion": "texto corregido"},
		},
	}

	updated, err := s.SyncFromPayload(context.Background(), repo.rec, snap, repo.acts, nil)
	require.NoError(t, err)

	assert.Equal(t, "Activo", updated.Status)
	assert.Equal(t, "Juzgado 1", updated.Court)
	assert.Equal(t, "Dra. Gómez", updated.Rapporteur)

	require.Len(t, updated.Acts, 1)
	act := updated.Acts[0]
	assert.Equal(t, "texto corregido", act.Description)
	assert.Equal(t, "Auto", act.Type, "omitted type keeps stored value")
	assert.Equal(t, "https://docs/42", act.DocumentURL)
	assert.Equal(t, "2026-08-01", formatDate(act.Date))
}

func TestSyncFromPayload_StatusDefaultsWhenUnknown(t *testing.T) {
	repo := newFakeRepo(t)
	repo.rec.Status = ""
	s := NewSynchronizer(repo, nil, logging.NewNopLogger())

	updated, err := s.SyncFromPayload(context.Background(), repo.rec, &ingest.Snapshot{Case: ingest.Record{}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, caserecord.StatusNotVerified, updated.Status)
}

func TestSyncFromPayload_PersistFailure(t *testing.T) {
	repo := newFakeRepo(t)
	repo.applyErr = errors.New(errors.ErrCodeDatabaseError, "connection lost")
	cache := &fakeCache{}
	s := NewSynchronizer(repo, cache, logging.NewNopLogger())

	_, err := s.SyncFromPayload(context.Background(), repo.rec, snapshot(), nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSyncFailed))
	assert.Empty(t, cache.deleted, "no invalidation without a commit")
}

func TestSyncFromPayload_CacheFailureDoesNotFailSync(t *testing.T) {
	repo := newFakeRepo(t)
	cache := &fakeCache{err: errors.New(errors.ErrCodeCacheError, "redis down")}
	s := NewSynchronizer(repo, cache, logging.NewNopLogger())

	_, err := s.SyncFromPayload(context.Background(), repo.rec, snapshot(), nil, nil)
	assert.NoError(t, err)
}
