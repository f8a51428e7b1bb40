package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// ErrLockNotHeld is returned by Unlock when the lock expired or belongs to
// another holder.
var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held")

// unlockScript releases the lock only when the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// SyncLock serializes sync cycles per case: the worker takes the lock before
// running the pipeline so overlapping schedules and manual refreshes cannot
// sync the same case concurrently.
type SyncLock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewSyncLock builds a lock for one case.  TTL must exceed the longest sync
// a cycle may take; 0 defaults to 2 minutes.
func NewSyncLock(client *Client, caseID string, ttl time.Duration) *SyncLock {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &SyncLock{
		client: client,
		key:    "arconte:lock:case.sync." + caseID,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to take the lock without blocking.
func (l *SyncLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire sync lock")
	}
	return ok, nil
}

// Unlock releases the lock if this instance still holds it.
func (l *SyncLock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release sync lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
