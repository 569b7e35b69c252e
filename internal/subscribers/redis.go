package subscribers

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps subscribers in a single set.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis stores subscribers under <prefix>subscribers.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "pdfbot:"
	}
	return &Redis{client: client, key: prefix + "subscribers"}
}

func (r *Redis) Add(ctx context.Context, userID int64) (bool, error) {
	n, err := r.client.SAdd(ctx, r.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("subscribers: add %d: %w", userID, err)
	}
	return n == 1, nil
}

func (r *Redis) Remove(ctx context.Context, userID int64) (bool, error) {
	n, err := r.client.SRem(ctx, r.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("subscribers: remove %d: %w", userID, err)
	}
	return n == 1, nil
}

func (r *Redis) IsMember(ctx context.Context, userID int64) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("subscribers: check %d: %w", userID, err)
	}
	return ok, nil
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("subscribers: count: %w", err)
	}
	return int(n), nil
}
