package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/domain/notification"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// TypeCaseUpdate is the notification type emitted by the sync pipeline.
const TypeCaseUpdate = "case_update"

// countsTTL bounds how stale the cached unread counters may get.
const countsTTL = time.Minute

// Cache is the read-side cache contract.  Get must return a not-found error
// on miss.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service owns notification creation, counters, and retention.  It is the
// pipeline's Notifier.
type Service struct {
	repo    notification.Repository
	rules   notification.RuleRepository
	cache   Cache // nil disables counter caching
	logger  logging.Logger
	metrics *prometheus.Metrics
}

func NewService(
	repo notification.Repository,
	rules notification.RuleRepository,
	cache Cache,
	log logging.Logger,
	metrics *prometheus.Metrics,
) *Service {
	return &Service{
		repo:    repo,
		rules:   rules,
		cache:   cache,
		logger:  log.Named("notification"),
		metrics: metrics,
	}
}

// NotifyChanges creates one notification per change event for the case owner.
// The owner's enabled rules are loaded once per batch.  Returns how many were
// created; a failed insert aborts the batch and reports what made it through.
func (s *Service) NotifyChanges(ctx context.Context, rec *caserecord.CaseRecord, changes []caserecord.ChangeEvent) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	var rules []notification.Rule
	if s.rules != nil {
		var err error
		rules, err = s.rules.ListEnabled(ctx, rec.OwnerID)
		if err != nil {
			// Rules only boost priority; without them the base still holds.
			s.logger.Warn("failed to load notification rules, using base priorities",
				logging.String("owner_id", rec.OwnerID),
				logging.Err(err),
			)
		}
	}

	created := 0
	for _, change := range changes {
		priority := ComputePriority(rec, change, rules)
		n, err := notification.New(
			rec.OwnerID,
			&rec.ID,
			TypeCaseUpdate,
			title(rec, change),
			change.Detail,
			priority,
			metadata(change),
		)
		if err != nil {
			return created, err
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return created, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create notification")
		}
		created++
		if s.metrics != nil {
			s.metrics.NotificationsCreated.Inc()
		}
	}

	s.invalidateCounts(ctx, rec.OwnerID)
	return created, nil
}

func title(rec *caserecord.CaseRecord, change caserecord.ChangeEvent) string {
	switch change.Type {
	case caserecord.ChangeNewAct:
		return fmt.Sprintf("Nueva actuación en el proceso %s", rec.Radicado)
	case caserecord.ChangeStatusChange:
		return fmt.Sprintf("Cambio de estado en el proceso %s", rec.Radicado)
	case caserecord.ChangePartyChange:
		return fmt.Sprintf("Cambio en las partes del proceso %s", rec.Radicado)
	default:
		return fmt.Sprintf("Novedad en el proceso %s", rec.Radicado)
	}
}

func metadata(change caserecord.ChangeEvent) map[string]any {
	md := map[string]any{
		"change_type": string(change.Type),
		"radicado":    change.Radicado,
	}
	if change.ActType != "" {
		md["act_type"] = change.ActType
	}
	if change.ActDate != "" {
		md["act_date"] = change.ActDate
	}
	if change.Deadline != "" {
		md["deadline"] = change.Deadline
	}
	for k, v := range change.Extra {
		md[k] = v
	}
	return md
}

// UnreadCount returns the owner's unread notification count, cached briefly.
func (s *Service) UnreadCount(ctx context.Context, ownerID string) (int64, error) {
	return s.cachedCount(ctx, unreadCountKey(ownerID), func() (int64, error) {
		return s.repo.UnreadCount(ctx, ownerID)
	})
}

// HighPriorityCount returns the owner's unread count at or above threshold.
// A non-positive threshold uses the default.
func (s *Service) HighPriorityCount(ctx context.Context, ownerID string, threshold int) (int64, error) {
	if threshold <= 0 {
		threshold = notification.DefaultHighPriorityThreshold
	}
	return s.cachedCount(ctx, highPriorityCountKey(ownerID, threshold), func() (int64, error) {
		return s.repo.HighPriorityCount(ctx, ownerID, threshold)
	})
}

func (s *Service) cachedCount(ctx context.Context, key string, load func() (int64, error)) (int64, error) {
	if s.cache != nil {
		var cached int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.WithLabelValues("counts").Inc()
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues("counts").Inc()
		}
	}

	count, err := load()
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, countsTTL); err != nil {
			s.logger.Warn("failed to cache notification count", logging.Err(err))
		}
	}
	return count, nil
}

// MarkAllRead stamps every unread notification of the owner as read now.
func (s *Service) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, ownerID, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark notifications read")
	}
	s.invalidateCounts(ctx, ownerID)
	return updated, nil
}

// PurgeOld removes read notifications older than the retention window.
// Non-positive days use the default.  Unread notifications always survive.
func (s *Service) PurgeOld(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = notification.DefaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	removed, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to purge notifications")
	}
	if removed > 0 {
		s.logger.Info("purged read notifications",
			logging.Int64("removed", removed),
			logging.Int("retention_days", retentionDays),
		)
		if s.metrics != nil {
			s.metrics.NotificationsPurged.Add(float64(removed))
		}
	}
	return removed, nil
}

// CreateRule registers a new priority rule for the owner.
func (s *Service) CreateRule(ctx context.Context, ownerID string, matcher notification.Matcher, boost int) (*notification.Rule, error) {
	rule, err := notification.NewRule(ownerID, matcher, boost)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create notification rule")
	}
	return rule, nil
}

func (s *Service) invalidateCounts(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		unreadCountKey(ownerID),
		highPriorityCountKey(ownerID, notification.DefaultHighPriorityThreshold),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate count cache",
			logging.String("owner_id", ownerID),
			logging.Err(err),
		)
	}
}

func unreadCountKey(ownerID string) string {
	return "notifications.unread." + ownerID
}

func highPriorityCountKey(ownerID string, threshold int) string {
	return fmt.Sprintf("notifications.high.%s.%d", ownerID, threshold)
}
