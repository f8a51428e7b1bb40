package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/1128026Go/Arconte-sub000/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{rdb: db, logger: logging.NewNopLogger()}
	s.cache = NewCache(s.client, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedCase struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := cachedCase{ID: "case-1", Status: "Al Despacho"}
	data, err := json.Marshal(val)
	require.NoError(s.T(), err)

	s.mock.ExpectGet("test:case.detail.case-1").SetVal(string(data))

	var dest cachedCase
	require.NoError(s.T(), s.cache.Get(context.Background(), "case.detail.case-1", &dest))
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:absent").RedisNil()

	var dest cachedCase
	err := s.cache.Get(context.Background(), "absent", &dest)
	assert.Equal(s.T(), ErrCacheMiss, err)
	assert.True(s.T(), pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_NullMarkerIsMiss() {
	s.mock.ExpectGet("test:gone").SetVal(nullMarker)

	var dest cachedCase
	assert.Equal(s.T(), ErrCacheMiss, s.cache.Get(context.Background(), "gone", &dest))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	assert.NoError(s.T(), s.cache.Delete(context.Background(), "k1", "k2"))
}

func (s *CacheTestSuite) TestDelete_NoKeysIsNoop() {
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	ok, err := s.cache.Exists(context.Background(), "k1")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	val := cachedCase{ID: "case-1", Status: "Activo"}
	data, err := json.Marshal(val)
	require.NoError(s.T(), err)

	s.mock.ExpectGet("test:case.detail.case-1").SetVal(string(data))

	loaderCalled := false
	var dest cachedCase
	err = s.cache.GetOrSet(context.Background(), "case.detail.case-1", &dest, time.Minute,
		func(ctx context.Context) (any, error) {
			loaderCalled = true
			return nil, nil
		})
	require.NoError(s.T(), err)
	assert.False(s.T(), loaderCalled)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoadsAndCaches() {
	val := cachedCase{ID: "case-1", Status: "Activo"}
	data, err := json.Marshal(val)
	require.NoError(s.T(), err)

	s.mock.ExpectGet("test:case.detail.case-1").RedisNil()
	// TTL carries jitter, so match the payload only.
	s.mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectSet("test:case.detail.case-1", data, time.Minute).SetVal("OK")

	var dest cachedCase
	err = s.cache.GetOrSet(context.Background(), "case.detail.case-1", &dest, time.Minute,
		func(ctx context.Context) (any, error) {
			return val, nil
		})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_NotFoundCachesNullMarker() {
	s.mock.ExpectGet("test:case.detail.missing").RedisNil()
	s.mock.ExpectSet("test:case.detail.missing", nullMarker, 30*time.Second).SetVal("OK")

	var dest cachedCase
	err := s.cache.GetOrSet(context.Background(), "case.detail.missing", &dest, time.Minute,
		func(ctx context.Context) (any, error) {
			return nil, pkgerrors.NotFound("case")
		})
	assert.True(s.T(), pkgerrors.IsNotFound(err))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterTTL_WithinBounds(t *testing.T) {
	c := &redisCache{}
	base := time.Minute
	for i := 0; i < 100; i++ {
		got := c.jitterTTL(base)
		assert.GreaterOrEqual(t, got, 54*time.Second)
		assert.LessOrEqual(t, got, 66*time.Second)
	}
	assert.Equal(t, time.Duration(0), c.jitterTTL(0))
}
