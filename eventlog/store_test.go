package eventlog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStoreGetCreatesDefaultOnce(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := NewStore(db, zaptest.NewLogger(t))

	first, err := s.Get(ctx, "1")
	require.NoError(t, err)
	second, err := s.Get(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, NewGuildConfig(), first)
	assert.Equal(t, 1, db.writes())
	assert.Contains(t, db.data, "1")
}

func TestStoreGetExistingDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	db.data["1"] = []byte(`{"logging_enabled":true,"log_channel_ids":{"system":"9"}}`)
	s := NewStore(db, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		c, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.True(t, c.Enabled)
		assert.Equal(t, "9", c.Channels[System])
	}
	assert.Equal(t, 0, db.writes())
}

func TestStoreConcurrentColdGet(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := NewStore(db, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Get(ctx, "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, db.writes())
	assert.Equal(t, 1, s.Len())
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeDB(), zaptest.NewLogger(t))

	c, err := s.Get(ctx, "1")
	require.NoError(t, err)
	c.Enabled = true
	c.Bind(Member, "2")

	again, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, again.Enabled)
	assert.Empty(t, again.Channels)
}

func TestStorePutAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := NewStore(db, zaptest.NewLogger(t))

	c := NewGuildConfig()
	c.Enabled = true
	require.NoError(t, s.Put(ctx, "1", c))

	got, err := s.Update(ctx, "1", func(c *GuildConfig) error {
		c.Bind(Role, "3")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "3", got.Channels[Role])

	// a fresh store sees what was persisted
	fresh := NewStore(db, zaptest.NewLogger(t))
	stored, err := fresh.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "1", func(*GuildConfig) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestStorePersistErrorPropagates(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	db.setErr = errors.New("disk full")
	s := NewStore(db, zaptest.NewLogger(t))

	_, err := s.Get(ctx, "1")
	assert.ErrorIs(t, err, db.setErr)
	assert.Equal(t, 0, s.Len())

	err = s.Put(ctx, "2", NewGuildConfig())
	assert.ErrorIs(t, err, db.setErr)
}

func TestStoreForget(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := NewStore(db, zaptest.NewLogger(t))

	_, err := s.Get(ctx, "1")
	require.NoError(t, err)
	s.Forget("1")
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, db.writes(), "the stored record is reloaded, not recreated")
}
