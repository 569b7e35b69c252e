package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis-backed Manager.
type RedisOptions struct {
	Prefix string
	// TTL is refreshed on every write to state, files and params. Languages never expire.
	TTL             time.Duration
	DefaultLanguage string
	// Timeout bounds each Redis round trip.
	Timeout time.Duration
}

type redisManager struct {
	client redis.UniversalClient
	opts   RedisOptions
}

// NewRedisManager returns a Manager persisting sessions in Redis.
// Redis failures are logged and reported as default values.
func NewRedisManager(client redis.UniversalClient, opts RedisOptions) Manager {
	if opts.Prefix == "" {
		opts.Prefix = "pdfbot:"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &redisManager{client: client, opts: opts}
}

func (m *redisManager) key(kind string, userID int64) string {
	return m.opts.Prefix + kind + ":" + strconv.FormatInt(userID, 10)
}

func (m *redisManager) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.Timeout)
}

func (m *redisManager) logErr(ctx context.Context, op string, userID int64, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	logger.Warn(ctx, "session", "redis.error",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
}

// touch refreshes the session TTL on all session keys of a user.
func (m *redisManager) touch(ctx context.Context, pipe redis.Pipeliner, userID int64) {
	if m.opts.TTL <= 0 {
		return
	}
	pipe.Expire(ctx, m.key("state", userID), m.opts.TTL)
	pipe.Expire(ctx, m.key("files", userID), m.opts.TTL)
	pipe.Expire(ctx, m.key("params", userID), m.opts.TTL)
}

func (m *redisManager) Get(userID int64) Session {
	ctx, cancel := m.ctx()
	defer cancel()

	pipe := m.client.Pipeline()
	stCmd := pipe.Get(ctx, m.key("state", userID))
	filesCmd := pipe.LRange(ctx, m.key("files", userID), 0, -1)
	paramsCmd := pipe.HGetAll(ctx, m.key("params", userID))
	_, err := pipe.Exec(ctx)
	m.logErr(ctx, "get", userID, err)

	out := Session{State: StateIdle, Params: map[string]string{}}
	if st := stCmd.Val(); st != "" {
		out.State = State(st)
	}
	out.Files = decodeFiles(filesCmd.Val())
	for k, v := range paramsCmd.Val() {
		out.Params[k] = v
	}
	return out
}

func (m *redisManager) SetState(userID int64, st State) {
	if st == StateIdle || st == "" {
		m.ClearState(userID)
		return
	}
	ctx, cancel := m.ctx()
	defer cancel()
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.key("state", userID), string(st), m.opts.TTL)
		m.touch(ctx, pipe, userID)
		return nil
	})
	m.logErr(ctx, "set_state", userID, err)
}

func (m *redisManager) GetState(userID int64) State {
	ctx, cancel := m.ctx()
	defer cancel()
	st, err := m.client.Get(ctx, m.key("state", userID)).Result()
	m.logErr(ctx, "get_state", userID, err)
	if st == "" {
		return StateIdle
	}
	return State(st)
}

func (m *redisManager) HasState(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

func (m *redisManager) ClearState(userID int64) {
	ctx, cancel := m.ctx()
	defer cancel()
	m.logErr(ctx, "clear_state", userID, m.client.Del(ctx, m.key("state", userID)).Err())
}

func (m *redisManager) InProgress(userID int64) bool {
	return m.HasState(userID)
}

func (m *redisManager) Files(userID int64) []StagedFile {
	ctx, cancel := m.ctx()
	defer cancel()
	raw, err := m.client.LRange(ctx, m.key("files", userID), 0, -1).Result()
	m.logErr(ctx, "files", userID, err)
	return decodeFiles(raw)
}

func (m *redisManager) AddFile(userID int64, f StagedFile) int {
	data, err := json.Marshal(f)
	if err != nil {
		return len(m.Files(userID))
	}
	ctx, cancel := m.ctx()
	defer cancel()
	var pushed *redis.IntCmd
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pushed = pipe.RPush(ctx, m.key("files", userID), data)
		m.touch(ctx, pipe, userID)
		return nil
	})
	m.logErr(ctx, "add_file", userID, err)
	if pushed == nil {
		return 0
	}
	return int(pushed.Val())
}

func (m *redisManager) ClearFiles(userID int64) {
	ctx, cancel := m.ctx()
	defer cancel()
	m.logErr(ctx, "clear_files", userID, m.client.Del(ctx, m.key("files", userID)).Err())
}

func (m *redisManager) GetParam(userID int64, key string) (string, bool) {
	ctx, cancel := m.ctx()
	defer cancel()
	v, err := m.client.HGet(ctx, m.key("params", userID), key).Result()
	if err != nil {
		m.logErr(ctx, "get_param", userID, err)
		return "", false
	}
	return v, true
}

func (m *redisManager) SetParam(userID int64, key, value string) {
	ctx, cancel := m.ctx()
	defer cancel()
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, m.key("params", userID), key, value)
		m.touch(ctx, pipe, userID)
		return nil
	})
	m.logErr(ctx, "set_param", userID, err)
}

func (m *redisManager) ClearParams(userID int64) {
	ctx, cancel := m.ctx()
	defer cancel()
	m.logErr(ctx, "clear_params", userID, m.client.Del(ctx, m.key("params", userID)).Err())
}

func (m *redisManager) ClearAll(userID int64) {
	ctx, cancel := m.ctx()
	defer cancel()
	err := m.client.Del(ctx,
		m.key("state", userID),
		m.key("files", userID),
		m.key("params", userID),
	).Err()
	m.logErr(ctx, "clear_all", userID, err)
}

func (m *redisManager) Language(userID int64) string {
	ctx, cancel := m.ctx()
	defer cancel()
	lang, err := m.client.Get(ctx, m.key("lang", userID)).Result()
	m.logErr(ctx, "language", userID, err)
	if lang == "" {
		return m.opts.DefaultLanguage
	}
	return lang
}

func (m *redisManager) SetLanguage(userID int64, lang string) {
	ctx, cancel := m.ctx()
	defer cancel()
	m.logErr(ctx, "set_language", userID, m.client.Set(ctx, m.key("lang", userID), lang, 0).Err())
}

// Active counts state keys; idle sessions have none.
func (m *redisManager) Active() int {
	ctx, cancel := m.ctx()
	defer cancel()
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := m.client.Scan(ctx, cursor, m.opts.Prefix+"state:*", 100).Result()
		if err != nil {
			m.logErr(ctx, "active", 0, err)
			return n
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n
		}
	}
}

func decodeFiles(raw []string) []StagedFile {
	out := make([]StagedFile, 0, len(raw))
	for _, item := range raw {
		var f StagedFile
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
