package users

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

// 各 Repository 実装に共通の振る舞い
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("insert assigns id and keeps hash", func(t *testing.T) {
		u, err := repo.Insert(ctx, "alice", "hash-1")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "hash-1", u.PasswordHash)
		assert.False(t, u.CreatedAt.IsZero())

		byID, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byID.ID)
		assert.Equal(t, "hash-1", byID.PasswordHash)

		byName, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)
	})

	t.Run("duplicate username returns first record", func(t *testing.T) {
		first, err := repo.Insert(ctx, "bob", "hash-a")
		require.NoError(t, err)
		second, err := repo.Insert(ctx, "bob", "hash-b")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		got, err := repo.FindByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("missing records", func(t *testing.T) {
		_, err := repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRedisStore(t *testing.T) {
	repo, _ := newRedisStore(t)
	exerciseRepository(t, repo)
}

func TestMemoryStore(t *testing.T) {
	repo := NewMemoryStore()
	exerciseRepository(t, repo)
	assert.Equal(t, 3, repo.Len())
}

func TestRedisStoreLayout(t *testing.T) {
	repo, mr := newRedisStore(t)

	u, err := repo.Insert(context.Background(), "carol", "hash")
	require.NoError(t, err)

	assert.True(t, mr.Exists("user:"+u.ID))
	ids, err := mr.List("users:by-username:carol")
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, ids)

	raw, err := mr.Get("user:" + u.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, `"passwordHash":"hash"`)
}

func TestRedisStoreEmptyID(t *testing.T) {
	repo, _ := newRedisStore(t)

	_, err := repo.FindByID(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	repo, mr := newRedisStore(t)
	mr.Close()

	_, err := repo.FindByUsername(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = repo.Insert(context.Background(), "alice", "hash")
	require.Error(t, err)
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	repo, mr := newRedisStore(t)
	require.NoError(t, mr.Set("user:broken", "{not json"))

	_, err := repo.FindByID(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
