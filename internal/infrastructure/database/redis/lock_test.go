package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
)

func newLockFixture(t *testing.T) (*SyncLock, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	return NewSyncLock(client, "case-1", time.Minute), mock
}

func TestSyncLock_TryLock(t *testing.T) {
	lock, mock := newLockFixture(t)
	mock.ExpectSetNX(lock.key, lock.token, time.Minute).SetVal(true)

	ok, err := lock.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLock_TryLock_AlreadyHeld(t *testing.T) {
	lock, mock := newLockFixture(t)
	mock.ExpectSetNX(lock.key, lock.token, time.Minute).SetVal(false)

	ok, err := lock.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncLock_Unlock(t *testing.T) {
	lock, mock := newLockFixture(t)
	mock.ExpectEvalSha(unlockScript.Hash(), []string{lock.key}, lock.token).SetVal(int64(1))

	assert.NoError(t, lock.Unlock(context.Background()))
}

func TestSyncLock_Unlock_NotHeld(t *testing.T) {
	lock, mock := newLockFixture(t)
	mock.ExpectEvalSha(unlockScript.Hash(), []string{lock.key}, lock.token).SetVal(int64(0))

	assert.Equal(t, ErrLockNotHeld, lock.Unlock(context.Background()))
}

func TestNewSyncLock_DefaultTTL(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	lock := NewSyncLock(client, "case-1", 0)
	assert.Equal(t, 2*time.Minute, lock.ttl)
}
