package subscribers

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	Add(ctx context.Context, userID int64) (bool, error)
	Remove(ctx context.Context, userID int64) (bool, error)
	IsMember(ctx context.Context, userID int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

func runContract(t *testing.T, s store) {
	ctx := context.Background()
	before, err := s.Count(ctx)
	require.NoError(t, err)

	added, err := s.Add(ctx, 10)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(ctx, 10)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = s.Add(ctx, 11)
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, n)

	ok, err := s.IsMember(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Remove(ctx, 10)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, 10)
	require.NoError(t, err)
	assert.False(t, removed)

	ok, err = s.IsMember(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	runContract(t, NewMemory())
}

func TestRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runContract(t, NewRedis(client, "test:"))
	assert.True(t, mr.Exists("test:subscribers"))
}

// TestPostgres needs a disposable database with the migrations applied.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("PDFBOT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PDFBOT_TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`DELETE FROM subscribers WHERE user_id IN (10, 11)`)
	require.NoError(t, err)

	runContract(t, NewPostgres(db))
}
