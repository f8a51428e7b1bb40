package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/1128026Go/Arconte-sub000/internal/domain/notification"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// NotificationRepository implements notification.Repository on a pgx pool.
type NotificationRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewNotificationRepository(pool *pgxpool.Pool, log logging.Logger) *NotificationRepository {
	return &NotificationRepository{pool: pool, logger: log.Named("notification_repo")}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to serialize notification metadata")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, owner_id, case_id, type, priority, title, message,
			metadata, read_at, sent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.OwnerID, n.CaseID, n.Type, n.Priority, n.Title, n.Message,
		metadata, n.ReadAt, n.SentAt, n.CreatedAt,
	)
	return mapError(err, "notification")
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE owner_id = $1 AND read_at IS NULL`, ownerID).Scan(&count)
	if err != nil {
		return 0, mapError(err, "notifications")
	}
	return count, nil
}

func (r *NotificationRepository) HighPriorityCount(ctx context.Context, ownerID string, threshold int) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE owner_id = $1 AND read_at IS NULL AND priority >= $2`,
		ownerID, threshold).Scan(&count)
	if err != nil {
		return 0, mapError(err, "notifications")
	}
	return count, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = $2
		WHERE owner_id = $1 AND read_at IS NULL`, ownerID, at)
	if err != nil {
		return 0, mapError(err, "notifications")
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE read_at IS NOT NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, mapError(err, "notifications")
	}
	removed := tag.RowsAffected()
	if removed > 0 {
		r.logger.Debug("retention sweep removed notifications",
			logging.Int64("removed", removed))
	}
	return removed, nil
}
