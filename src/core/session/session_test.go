package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/src/core/session"
)

func storeContract(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	s := session.New()
	assert.Equal(t, session.PageChatbot, s.Page)
	assert.False(t, s.IsAdmin)
	require.NoError(t, store.Save(ctx, s))

	s.Page = session.PageAdmin
	s.IsAdmin = true
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, *s, *got)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, session.NewMemoryStore(time.Hour))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := session.NewMemoryStore(time.Millisecond)
	s := session.New()
	require.NoError(t, store.Save(context.Background(), s))

	time.Sleep(5 * time.Millisecond)
	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := session.NewRedisStore(client, time.Hour)
	storeContract(t, store)

	s := session.New()
	require.NoError(t, store.Save(context.Background(), s))
	assert.True(t, mr.Exists("session:"+s.ID))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
