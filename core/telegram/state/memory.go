package state

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"

	"github.com/patrickmn/go-cache"
)

// MemoryOptions configures the in-memory Manager.
type MemoryOptions struct {
	// TTL expires sessions idle for longer than this; zero disables expiry.
	TTL time.Duration
	// CleanupInterval paces the expiry janitor: zero means TTL/2 capped at 10 minutes,
	// negative disables it.
	CleanupInterval time.Duration
	DefaultLanguage string
	// OnExpire receives sessions dropped by expiry that still hold files or params.
	OnExpire func(userID int64, s Session)
}

type memoryEntry struct {
	mu   sync.Mutex
	sess Session
}

type memoryManager struct {
	// mu makes lookup, sliding refresh and creation one step.
	mu          sync.Mutex
	sessions    *cache.Cache
	defaultLang string

	langMu sync.RWMutex
	langs  map[int64]string
}

// NewMemoryManager constructs an in-memory Manager backed by go-cache.
func NewMemoryManager(opts MemoryOptions) Manager {
	ttl := opts.TTL
	cleanup := opts.CleanupInterval
	if cleanup == 0 {
		cleanup = min(ttl/2, 10*time.Minute)
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	if cleanup < 0 {
		cleanup = 0
	}
	m := &memoryManager{
		sessions:    cache.New(ttl, cleanup),
		defaultLang: opts.DefaultLanguage,
		langs:       make(map[int64]string),
	}
	if opts.OnExpire != nil {
		m.sessions.OnEvicted(func(key string, v interface{}) {
			e, ok := v.(*memoryEntry)
			if !ok {
				return
			}
			userID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return
			}
			e.mu.Lock()
			snap := e.sess.clone()
			e.mu.Unlock()
			if len(snap.Files) == 0 && len(snap.Params) == 0 {
				return
			}
			logger.Debug(context.Background(), "session", "session.expired",
				slog.Int64("user_id", userID),
				slog.String("state", string(snap.State)),
				slog.Int("count", len(snap.Files)),
			)
			opts.OnExpire(userID, snap)
		})
	}
	return m
}

func (m *memoryManager) entry(userID int64, create bool) *memoryEntry {
	key := strconv.FormatInt(userID, 10)
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.sessions.Get(key); ok {
		e := v.(*memoryEntry)
		// Refresh the sliding expiry.
		m.sessions.Set(key, e, cache.DefaultExpiration)
		return e
	}
	if !create {
		return nil
	}
	// An expired entry the janitor has not reached yet would be overwritten
	// without an eviction; evict it first so its files are handed over.
	m.sessions.DeleteExpired()
	e := &memoryEntry{sess: Session{State: StateIdle}}
	m.sessions.Set(key, e, cache.DefaultExpiration)
	return e
}

func (m *memoryManager) read(userID int64, fn func(s *Session)) {
	e := m.entry(userID, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.sess)
}

func (m *memoryManager) write(userID int64, fn func(s *Session)) {
	e := m.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.sess)
}

// Get returns a copy of the user's session, or an idle session if none exists.
func (m *memoryManager) Get(userID int64) Session {
	out := Session{State: StateIdle, Params: map[string]string{}}
	m.read(userID, func(s *Session) {
		out = s.clone()
	})
	if out.State == "" {
		out.State = StateIdle
	}
	return out
}

// SetState sets the FSM state for the given user.
func (m *memoryManager) SetState(userID int64, st State) {
	m.write(userID, func(s *Session) { s.State = st })
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager) GetState(userID int64) State {
	st := StateIdle
	m.read(userID, func(s *Session) {
		if s.State != "" {
			st = s.State
		}
	})
	return st
}

// HasState checks if a user has an active state other than idle.
func (m *memoryManager) HasState(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ClearState resets the FSM state to idle without touching files or params.
func (m *memoryManager) ClearState(userID int64) {
	m.read(userID, func(s *Session) { s.State = StateIdle })
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager) InProgress(userID int64) bool {
	return m.HasState(userID)
}

func (m *memoryManager) Files(userID int64) []StagedFile {
	var out []StagedFile
	m.read(userID, func(s *Session) {
		out = append([]StagedFile(nil), s.Files...)
	})
	if out == nil {
		out = []StagedFile{}
	}
	return out
}

func (m *memoryManager) AddFile(userID int64, f StagedFile) int {
	var n int
	m.write(userID, func(s *Session) {
		s.Files = append(s.Files, f)
		n = len(s.Files)
	})
	return n
}

func (m *memoryManager) ClearFiles(userID int64) {
	m.read(userID, func(s *Session) { s.Files = nil })
}

func (m *memoryManager) GetParam(userID int64, key string) (string, bool) {
	var (
		v  string
		ok bool
	)
	m.read(userID, func(s *Session) {
		v, ok = s.Params[key]
	})
	return v, ok
}

func (m *memoryManager) SetParam(userID int64, key, value string) {
	m.write(userID, func(s *Session) {
		if s.Params == nil {
			s.Params = make(map[string]string)
		}
		s.Params[key] = value
	})
}

func (m *memoryManager) ClearParams(userID int64) {
	m.read(userID, func(s *Session) { s.Params = nil })
}

func (m *memoryManager) ClearAll(userID int64) {
	m.read(userID, func(s *Session) {
		s.State = StateIdle
		s.Files = nil
		s.Params = nil
	})
}

// Language returns the stored language or the configured default.
func (m *memoryManager) Language(userID int64) string {
	m.langMu.RLock()
	defer m.langMu.RUnlock()
	if lang, ok := m.langs[userID]; ok && lang != "" {
		return lang
	}
	return m.defaultLang
}

func (m *memoryManager) SetLanguage(userID int64, lang string) {
	m.langMu.Lock()
	defer m.langMu.Unlock()
	m.langs[userID] = lang
}

func (m *memoryManager) Active() int {
	n := 0
	for _, item := range m.sessions.Items() {
		e, ok := item.Object.(*memoryEntry)
		if !ok {
			continue
		}
		e.mu.Lock()
		if e.sess.State != "" && e.sess.State != StateIdle {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
