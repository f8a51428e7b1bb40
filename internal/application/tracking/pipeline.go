// Package tracking implements the case synchronization pipeline: fetch the
// normalized snapshot, detect changes against the stored case, classify new
// orders, persist atomically, and fan the changes out to notifications and
// the event stream.
package tracking

import (
	"context"
	"sort"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/application/classification"
	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// SnapshotFetcher is implemented by ingest.Client.
type SnapshotFetcher interface {
	FetchNormalized(ctx context.Context, caseNumber string) (*ingest.Snapshot, error)
}

// ActClassifier is implemented by classification.Classifier.
type ActClassifier interface {
	Classify(ctx context.Context, act *caserecord.ProceduralAct) classification.Result
}

// Notifier turns change events into user notifications and reports how many
// it created.
type Notifier interface {
	NotifyChanges(ctx context.Context, rec *caserecord.CaseRecord, changes []caserecord.ChangeEvent) (int, error)
}

// EventPublisher pushes change events onto the message stream.
type EventPublisher interface {
	PublishCaseChanged(ctx context.Context, event caserecord.ChangeEvent) error
}

// SyncReport summarizes one completed sync cycle.
type SyncReport struct {
	Case          *caserecord.CaseRecord
	Changes       []caserecord.ChangeEvent
	NewActs       int
	Notifications int
}

// Pipeline wires the full cycle together.  Notifier and EventPublisher may
// be nil; both legs are best-effort and a failure there never rolls back a
// committed sync.
type Pipeline struct {
	fetcher    SnapshotFetcher
	repo       caserecord.Repository
	sync       *Synchronizer
	classifier ActClassifier
	notifier   Notifier
	publisher  EventPublisher
	logger     logging.Logger
	metrics    *prometheus.Metrics
}

func NewPipeline(
	fetcher SnapshotFetcher,
	repo caserecord.Repository,
	sync *Synchronizer,
	classifier ActClassifier,
	notifier Notifier,
	publisher EventPublisher,
	log logging.Logger,
	metrics *prometheus.Metrics,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		repo:       repo,
		sync:       sync,
		classifier: classifier,
		notifier:   notifier,
		publisher:  publisher,
		logger:     log.Named("pipeline"),
		metrics:    metrics,
	}
}

// SyncCase runs one full cycle for the given case id.
func (p *Pipeline) SyncCase(ctx context.Context, caseID string) (*SyncReport, error) {
	start := time.Now()
	report, err := p.syncCase(ctx, caseID)
	if p.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		p.metrics.SyncTotal.WithLabelValues(outcome).Inc()
		p.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}
	return report, err
}

func (p *Pipeline) syncCase(ctx context.Context, caseID string) (*SyncReport, error) {
	rec, err := p.repo.GetWithRelations(ctx, caseID)
	if err != nil {
		return nil, err
	}

	snap, err := p.fetcher.FetchNormalized(ctx, rec.Radicado)
	if err != nil {
		return nil, err
	}

	fresh := DetectNewActs(snap.Acts, rec.Acts)
	if p.metrics != nil && len(fresh) > 0 {
		p.metrics.NewActsDetected.Add(float64(len(fresh)))
	}

	classifications := p.classifyNewOrders(ctx, fresh)
	changes := p.detectChanges(rec, snap, fresh, classifications)

	if len(changes) > 0 {
		rec.HasUnread = true
	}

	updated, err := p.sync.SyncFromPayload(ctx, rec, snap, rec.Acts, classifications)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Case: updated, Changes: changes, NewActs: len(fresh)}
	if len(changes) == 0 {
		return report, nil
	}

	p.observeChanges(changes)
	report.Notifications = p.notify(ctx, updated, changes, fresh)
	p.publish(ctx, changes)

	return report, nil
}

// classifyNewOrders runs the classifier over the fresh acts that look like
// judicial orders and flags them in the payload so persistence knows the
// verdict applies.
func (p *Pipeline) classifyNewOrders(ctx context.Context, fresh []ingest.Record) map[string]classification.Result {
	if p.classifier == nil {
		return nil
	}
	classifications := make(map[string]classification.Result)
	for _, r := range fresh {
		act := caserecord.ProceduralAct{
			Type:        r.First("type", "tipo"),
			Description: r.First("title", "descripcion", "description"),
		}
		if !act.IsOrder() {
			continue
		}
		key := UniqueKeyFor(r)
		classifications[key] = p.classifier.Classify(ctx, &act)
		r["is_auto"] = true
	}
	return classifications
}

// detectChanges compares the stored case with the snapshot.  New-act events
// carry the cycle's classification verdict so the priority engine can react
// to a peremptory order.  Status and party changes only fire on previously
// verified cases so the first sync of a fresh registration does not alert on
// everything it learns.
func (p *Pipeline) detectChanges(rec *caserecord.CaseRecord, snap *ingest.Snapshot, fresh []ingest.Record, classifications map[string]classification.Result) []caserecord.ChangeEvent {
	now := time.Now().UTC()
	var changes []caserecord.ChangeEvent

	for _, r := range fresh {
		ev := caserecord.ChangeEvent{
			Type:       caserecord.ChangeNewAct,
			CaseID:     rec.ID,
			Radicado:   rec.Radicado,
			ActType:    r.First("type", "tipo"),
			ActDate:    normalizeDate(r.First("date", "fecha")),
			Detail:     r.First("title", "descripcion", "description"),
			Deadline:   normalizeDate(r.First("fecha_final")),
			ObservedAt: now,
		}
		if res, ok := classifications[UniqueKeyFor(r)]; ok {
			ev.Classification = res.Type
		}
		changes = append(changes, ev)
	}

	if !rec.Verified {
		return changes
	}

	if status := snap.Case.First("status", "estado_actual"); status != "" && status != rec.Status {
		changes = append(changes, caserecord.ChangeEvent{
			Type:       caserecord.ChangeStatusChange,
			CaseID:     rec.ID,
			Radicado:   rec.Radicado,
			Detail:     status,
			Extra:      map[string]any{"previous": rec.Status, "current": status},
			ObservedAt: now,
		})
	}

	if partySetChanged(rec.Parties, snap.Parties) {
		changes = append(changes, caserecord.ChangeEvent{
			Type:       caserecord.ChangePartyChange,
			CaseID:     rec.ID,
			Radicado:   rec.Radicado,
			Detail:     "parties to the process changed",
			ObservedAt: now,
		})
	}

	return changes
}

// partySetChanged compares parties as an order-insensitive set of role|name
// pairs.  The payload replacing the same people in a different order is not
// a change.
func partySetChanged(stored []caserecord.Party, incoming []ingest.Record) bool {
	before := make([]string, 0, len(stored))
	for _, p := range stored {
		before = append(before, string(p.Role)+"|"+p.Name)
	}
	after := make([]string, 0, len(incoming))
	for _, r := range incoming {
		name := r.First("name", "nombre")
		role := r.First("role", "rol")
		if name == "" && role == "" {
			continue
		}
		after = append(after, string(normalizeRole(role))+"|"+name)
	}
	if len(before) != len(after) {
		return true
	}
	sort.Strings(before)
	sort.Strings(after)
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

func (p *Pipeline) observeChanges(changes []caserecord.ChangeEvent) {
	if p.metrics == nil {
		return
	}
	for _, c := range changes {
		p.metrics.ChangesDetected.WithLabelValues(string(c.Type)).Inc()
	}
}

// notify creates user notifications and marks the new acts as notified.
// Both steps are best-effort: the sync already committed.
func (p *Pipeline) notify(ctx context.Context, rec *caserecord.CaseRecord, changes []caserecord.ChangeEvent, fresh []ingest.Record) int {
	if p.notifier == nil {
		return 0
	}
	created, err := p.notifier.NotifyChanges(ctx, rec, changes)
	if err != nil {
		p.logger.Warn("notification delivery failed",
			logging.String("case_id", rec.ID),
			logging.Int("changes", len(changes)),
			logging.Err(err),
		)
		return created
	}

	if len(fresh) > 0 {
		keys := make([]string, 0, len(fresh))
		for _, r := range fresh {
			keys = append(keys, UniqueKeyFor(r))
		}
		if err := p.repo.MarkActsNotified(ctx, rec.ID, keys); err != nil {
			p.logger.Warn("failed to mark acts notified",
				logging.String("case_id", rec.ID),
				logging.Err(err),
			)
		}
	}
	return created
}

func (p *Pipeline) publish(ctx context.Context, changes []caserecord.ChangeEvent) {
	if p.publisher == nil {
		return
	}
	for _, change := range changes {
		if err := p.publisher.PublishCaseChanged(ctx, change); err != nil {
			p.logger.Warn("failed to publish change event",
				logging.String("case_id", change.CaseID),
				logging.String("change_type", string(change.Type)),
				logging.Err(err),
			)
			return
		}
	}
}

// Register creates and immediately persists a new tracked case for an owner.
// The first sync happens on the next cycle or on demand; registration never
// blocks on the portal.
func (p *Pipeline) Register(ctx context.Context, ownerID, radicado string) (*caserecord.CaseRecord, error) {
	if existing, err := p.repo.GetByRadicado(ctx, ownerID, radicado); err == nil {
		return existing, errors.New(errors.ErrCodeConflict, "case already registered").
			WithDetail("radicado=" + radicado)
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	rec, err := caserecord.NewCaseRecord(ownerID, radicado)
	if err != nil {
		return nil, err
	}
	if err := p.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
