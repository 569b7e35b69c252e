package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerDefaults(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{DefaultLanguage: "en"})

	assert.Equal(t, StateIdle, m.GetState(42))
	assert.Empty(t, m.Files(42))
	assert.False(t, m.InProgress(42))
	assert.Equal(t, "en", m.Language(42))

	_, ok := m.GetParam(42, "target")
	assert.False(t, ok)

	s := m.Get(42)
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.Files)
	assert.NotNil(t, s.Params)
}

func TestMemoryManagerFilesKeepOrder(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.SetState(1, "merging")

	for i, p := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		n := m.AddFile(1, StagedFile{Path: p, Role: "input"})
		assert.Equal(t, i+1, n)
	}

	files := m.Files(1)
	require.Len(t, files, 3)
	assert.Equal(t, "a.pdf", files[0].Path)
	assert.Equal(t, "c.pdf", files[2].Path)
	assert.Equal(t, State("merging"), m.GetState(1))
}

func TestMemoryManagerClearStateKeepsData(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.SetState(7, "rotating_wait_angle")
	m.SetParam(7, "target", "/tmp/x.pdf")
	m.AddFile(7, StagedFile{Path: "/tmp/y.pdf"})

	m.ClearState(7)
	assert.Equal(t, StateIdle, m.GetState(7))
	v, ok := m.GetParam(7, "target")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/x.pdf", v)
	assert.Len(t, m.Files(7), 1)

	m.ClearAll(7)
	assert.Empty(t, m.Files(7))
	_, ok = m.GetParam(7, "target")
	assert.False(t, ok)
}

func TestMemoryManagerClearAllKeepsLanguage(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{DefaultLanguage: "en"})
	m.SetLanguage(3, "fa")
	m.SetState(3, "merging")
	m.ClearAll(3)
	assert.Equal(t, "fa", m.Language(3))
}

func TestMemoryManagerSnapshotIsCopy(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.AddFile(5, StagedFile{Path: "one"})
	m.SetParam(5, "k", "v")

	s := m.Get(5)
	s.Files[0].Path = "mutated"
	s.Params["k"] = "mutated"

	assert.Equal(t, "one", m.Files(5)[0].Path)
	v, _ := m.GetParam(5, "k")
	assert.Equal(t, "v", v)
}

func TestMemoryManagerConcurrentAppends(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	const uploads = 50

	var wg sync.WaitGroup
	wg.Add(uploads)
	for i := 0; i < uploads; i++ {
		go func() {
			defer wg.Done()
			m.AddFile(9, StagedFile{Path: "img.jpg"})
		}()
	}
	wg.Wait()

	assert.Len(t, m.Files(9), uploads)
}

func TestMemoryManagerExpiryHandsOverFiles(t *testing.T) {
	expired := make(chan Session, 1)
	m := NewMemoryManager(MemoryOptions{
		TTL: 20 * time.Millisecond,
		OnExpire: func(userID int64, s Session) {
			if userID == 11 {
				expired <- s
			}
		},
	})
	m.SetState(11, "merging")
	m.AddFile(11, StagedFile{Path: "stale.pdf"})

	select {
	case s := <-expired:
		require.Len(t, s.Files, 1)
		assert.Equal(t, "stale.pdf", s.Files[0].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}
	assert.Equal(t, StateIdle, m.GetState(11))
}

func TestMemoryManagerRecreateAfterExpiryHandsOverFiles(t *testing.T) {
	var expired []Session
	m := NewMemoryManager(MemoryOptions{
		TTL:             20 * time.Millisecond,
		CleanupInterval: -1,
		OnExpire: func(_ int64, s Session) {
			expired = append(expired, s)
		},
	})
	m.SetState(12, "merging")
	m.AddFile(12, StagedFile{Path: "old.pdf"})
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, 1, m.AddFile(12, StagedFile{Path: "new.pdf"}))

	require.Len(t, expired, 1)
	require.Len(t, expired[0].Files, 1)
	assert.Equal(t, "old.pdf", expired[0].Files[0].Path)
	files := m.Files(12)
	require.Len(t, files, 1)
	assert.Equal(t, "new.pdf", files[0].Path)
	assert.Equal(t, StateIdle, m.GetState(12))
}

func TestMemoryManagerActive(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.SetState(1, "merging")
	m.SetState(2, "rotating")
	m.SetParam(3, "k", "v")
	assert.Equal(t, 2, m.Active())
}
