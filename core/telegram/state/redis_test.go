package state

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisManager(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisManager(client, RedisOptions{Prefix: "test:", TTL: ttl, DefaultLanguage: "en"})
}

func TestRedisManagerDefaults(t *testing.T) {
	_, m := newRedisManager(t, time.Hour)

	assert.Equal(t, StateIdle, m.GetState(1))
	assert.Empty(t, m.Files(1))
	assert.Equal(t, "en", m.Language(1))
	_, ok := m.GetParam(1, "target")
	assert.False(t, ok)
}

func TestRedisManagerRoundTrip(t *testing.T) {
	mr, m := newRedisManager(t, time.Hour)

	m.SetState(5, "merging")
	assert.Equal(t, 1, m.AddFile(5, StagedFile{Path: "/s/a.pdf", Role: "input"}))
	assert.Equal(t, 2, m.AddFile(5, StagedFile{Path: "/s/b.pdf", Role: "input"}))
	m.SetParam(5, "target", "/s/t.pdf")

	s := m.Get(5)
	assert.Equal(t, State("merging"), s.State)
	require.Len(t, s.Files, 2)
	assert.Equal(t, "/s/a.pdf", s.Files[0].Path)
	assert.Equal(t, "/s/b.pdf", s.Files[1].Path)
	assert.Equal(t, "/s/t.pdf", s.Params["target"])
	assert.True(t, mr.Exists("test:state:5"))
	assert.True(t, mr.TTL("test:files:5") > 0)

	m.ClearAll(5)
	assert.Equal(t, StateIdle, m.GetState(5))
	assert.Empty(t, m.Files(5))
	assert.False(t, mr.Exists("test:params:5"))
}

func TestRedisManagerLanguageOutlivesSession(t *testing.T) {
	mr, m := newRedisManager(t, time.Minute)

	m.SetLanguage(8, "fa")
	m.SetState(8, "rotating")
	mr.FastForward(2 * time.Minute)

	assert.Equal(t, StateIdle, m.GetState(8))
	assert.Equal(t, "fa", m.Language(8))
}

func TestRedisManagerSetIdleDeletesState(t *testing.T) {
	mr, m := newRedisManager(t, 0)
	m.SetState(2, "compressing")
	m.SetState(2, StateIdle)
	assert.False(t, mr.Exists("test:state:2"))
	assert.False(t, m.InProgress(2))
}

func TestRedisManagerActive(t *testing.T) {
	_, m := newRedisManager(t, 0)
	m.SetState(1, "merging")
	m.SetState(2, "protecting")
	m.SetLanguage(3, "en")
	assert.Equal(t, 2, m.Active())
}

func TestRedisManagerUnavailable(t *testing.T) {
	mr, m := newRedisManager(t, 0)
	mr.Close()

	assert.Equal(t, StateIdle, m.GetState(1))
	assert.Equal(t, "en", m.Language(1))
	assert.Empty(t, m.Files(1))
	m.SetState(1, "merging")
}
