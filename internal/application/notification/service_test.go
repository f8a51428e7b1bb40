package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/domain/notification"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

type fakeNotificationRepo struct {
	created   []*notification.Notification
	createErr error
	unread    int64
	high      int64
	marked    int64
	purged    int64
	cutoff    time.Time
	loads     int
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) UnreadCount(ctx context.Context, ownerID string) (int64, error) {
	f.loads++
	return f.unread, nil
}

func (f *fakeNotificationRepo) HighPriorityCount(ctx context.Context, ownerID string, threshold int) (int64, error) {
	f.loads++
	return f.high, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	return f.marked, nil
}

func (f *fakeNotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.purged, nil
}

type fakeRuleRepo struct {
	rules   []notification.Rule
	listErr error
}

func (f *fakeRuleRepo) Create(ctx context.Context, r *notification.Rule) error {
	f.rules = append(f.rules, *r)
	return nil
}

func (f *fakeRuleRepo) ListEnabled(ctx context.Context, ownerID string) ([]notification.Rule, error) {
	return f.rules, f.listErr
}

type memCache struct {
	values  map[string]int64
	deleted []string
}

func newMemCache() *memCache { return &memCache{values: map[string]int64{}} }

func (c *memCache) Get(ctx context.Context, key string, dest any) error {
	v, ok := c.values[key]
	if !ok {
		return errors.NotFound("cache key")
	}
	*dest.(*int64) = v
	return nil
}

func (c *memCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.values[key] = value.(int64)
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func newTestService(repo *fakeNotificationRepo, rules *fakeRuleRepo, cache Cache) *Service {
	return NewService(repo, rules, cache, logging.NewNopLogger(), nil)
}

func changeOf(typ caserecord.ChangeType, detail string) caserecord.ChangeEvent {
	return caserecord.ChangeEvent{
		Type:       typ,
		CaseID:     "case-1",
		Radicado:   testRadicado,
		Detail:     detail,
		ObservedAt: time.Now().UTC(),
	}
}

func TestNotifyChanges_CreatesPerChange(t *testing.T) {
	repo := &fakeNotificationRepo{}
	rules := &fakeRuleRepo{rules: []notification.Rule{
		mustRule(t, &notification.KeywordMatcher{Keywords: []string{"traslado"}}, 3),
	}}
	s := newTestService(repo, rules, nil)

	changes := []caserecord.ChangeEvent{
		changeOf(caserecord.ChangeNewAct, "confiérase traslado de la demanda"),
		changeOf(caserecord.ChangeStatusChange, "Archivado"),
	}
	created, err := s.NotifyChanges(context.Background(), testRecord(), changes)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, repo.created, 2)

	first := repo.created[0]
	assert.Equal(t, "user-1", first.OwnerID)
	assert.Equal(t, TypeCaseUpdate, first.Type)
	assert.Equal(t, 8, first.Priority, "base 5 plus keyword boost 3")
	assert.Contains(t, first.Title, testRadicado)
	assert.Equal(t, "new_act", first.Metadata["change_type"])

	assert.Equal(t, 7, repo.created[1].Priority)
}

func TestNotifyChanges_PeremptoryActIsHighPriorityWithoutRules(t *testing.T) {
	repo := &fakeNotificationRepo{}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	change := changeOf(caserecord.ChangeNewAct, "confiérase traslado por 3 días")
	change.ActType = "Auto"
	change.Classification = caserecord.ClassificationPeremptory

	created, err := s.NotifyChanges(context.Background(), testRecord(), []caserecord.ChangeEvent{change})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, repo.created, 1)
	assert.GreaterOrEqual(t, repo.created[0].Priority, notification.DefaultHighPriorityThreshold,
		"a peremptory order alerts at high priority on its own")
}

func TestNotifyChanges_EmptyIsNoop(t *testing.T) {
	repo := &fakeNotificationRepo{}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	created, err := s.NotifyChanges(context.Background(), testRecord(), nil)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, repo.created)
}

func TestNotifyChanges_RuleLoadFailureUsesBasePriorities(t *testing.T) {
	repo := &fakeNotificationRepo{}
	rules := &fakeRuleRepo{listErr: errors.New(errors.ErrCodeDatabaseError, "down")}
	s := newTestService(repo, rules, nil)

	created, err := s.NotifyChanges(context.Background(), testRecord(),
		[]caserecord.ChangeEvent{changeOf(caserecord.ChangeNewAct, "auto admisorio")})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 5, repo.created[0].Priority)
}

func TestNotifyChanges_CreateFailureReportsPartialProgress(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New(errors.ErrCodeDatabaseError, "insert failed")}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	created, err := s.NotifyChanges(context.Background(), testRecord(),
		[]caserecord.ChangeEvent{changeOf(caserecord.ChangeNewAct, "auto")})
	assert.Error(t, err)
	assert.Zero(t, created)
}

func TestNotifyChanges_InvalidatesCountCache(t *testing.T) {
	cache := newMemCache()
	cache.values[unreadCountKey("user-1")] = 4
	s := newTestService(&fakeNotificationRepo{}, &fakeRuleRepo{}, cache)

	_, err := s.NotifyChanges(context.Background(), testRecord(),
		[]caserecord.ChangeEvent{changeOf(caserecord.ChangeNewAct, "auto")})
	require.NoError(t, err)
	assert.Contains(t, cache.deleted, unreadCountKey("user-1"))
}

func TestUnreadCount_CachesValue(t *testing.T) {
	repo := &fakeNotificationRepo{unread: 6}
	cache := newMemCache()
	s := newTestService(repo, &fakeRuleRepo{}, cache)

	for i := 0; i < 3; i++ {
		count, err := s.UnreadCount(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(6), count)
	}
	assert.Equal(t, 1, repo.loads, "only the first call hits the repository")
}

func TestHighPriorityCount_DefaultThreshold(t *testing.T) {
	repo := &fakeNotificationRepo{high: 2}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	count, err := s.HighPriorityCount(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarkAllRead(t *testing.T) {
	repo := &fakeNotificationRepo{marked: 3}
	cache := newMemCache()
	cache.values[unreadCountKey("user-1")] = 3
	s := newTestService(repo, &fakeRuleRepo{}, cache)

	updated, err := s.MarkAllRead(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	assert.NotContains(t, cache.values, unreadCountKey("user-1"))
}

func TestPurgeOld_DefaultRetention(t *testing.T) {
	repo := &fakeNotificationRepo{purged: 12}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	removed, err := s.PurgeOld(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)

	wantCutoff := time.Now().UTC().AddDate(0, 0, -notification.DefaultRetentionDays)
	assert.WithinDuration(t, wantCutoff, repo.cutoff, time.Minute)
}

func TestPurgeOld_CustomRetention(t *testing.T) {
	repo := &fakeNotificationRepo{}
	s := newTestService(repo, &fakeRuleRepo{}, nil)

	_, err := s.PurgeOld(context.Background(), 30)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -30), repo.cutoff, time.Minute)
}

func TestCreateRule(t *testing.T) {
	rules := &fakeRuleRepo{}
	s := newTestService(&fakeNotificationRepo{}, rules, nil)

	rule, err := s.CreateRule(context.Background(), "user-1",
		&notification.DeadlineMatcher{}, 2)
	require.NoError(t, err)
	assert.Equal(t, notification.RuleDeadline, rule.Type)
	assert.Len(t, rules.rules, 1)
}
