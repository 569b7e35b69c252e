package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
	"github.com/m3rciful/pdfbot/internal/staging"
	"github.com/m3rciful/pdfbot/internal/texts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type sentFile struct {
	name    string
	caption string
	existed bool
}

type fakeResponder struct {
	mu      sync.Mutex
	replies []Reply
	files   []sentFile
}

func (r *fakeResponder) Send(rep Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, rep)
	return nil
}

func (r *fakeResponder) Edit(rep Reply) error { return r.Send(rep) }

func (r *fakeResponder) SendFile(path, name, caption string) error {
	_, err := os.Stat(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, sentFile{name: name, caption: caption, existed: err == nil})
	return nil
}

func (r *fakeResponder) last() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return Reply{}
	}
	return r.replies[len(r.replies)-1]
}

type runCall struct {
	op       ops.Op
	inputs   []string
	contents []string
	params   map[string]string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	errs  []error
}

func (f *fakeRunner) Run(_ context.Context, op ops.Op, req ops.Request) (ops.Artifact, error) {
	c := runCall{op: op, inputs: append([]string(nil), req.Inputs...), params: req.Params}
	for _, in := range req.Inputs {
		data, _ := os.ReadFile(in)
		c.contents = append(c.contents, string(data))
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return ops.Artifact{}, ops.Wrap(op, err)
	}
	out := filepath.Join(req.WorkDir, "result.pdf")
	if err := os.WriteFile(out, []byte("%PDF-result"), 0o600); err != nil {
		return ops.Artifact{}, err
	}
	return ops.Artifact{Path: out, Name: "result.pdf", Pages: 3, Size: 11}, nil
}

func (f *fakeRunner) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

type memSubscribers struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func (m *memSubscribers) Add(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[id] {
		return false, nil
	}
	m.ids[id] = true
	return true, nil
}

func (m *memSubscribers) Remove(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.ids[id]
	delete(m.ids, id)
	return had, nil
}

func (m *memSubscribers) IsMember(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[id], nil
}

func (m *memSubscribers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids), nil
}

type harness struct {
	d      *Dispatcher
	store  state.Manager
	stager *staging.Stager
	runner *fakeRunner
	out    *fakeResponder
	cat    *texts.Catalog
}

func newHarness(t *testing.T, limits Limits) *harness {
	t.Helper()
	cat, err := texts.Load("en")
	require.NoError(t, err)
	stager, err := staging.New(staging.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	h := &harness{
		store:  state.NewMemoryManager(state.MemoryOptions{DefaultLanguage: "en"}),
		stager: stager,
		runner: &fakeRunner{},
		out:    &fakeResponder{},
		cat:    cat,
	}
	h.d, err = New(Options{
		Store:       h.store,
		Stager:      stager,
		Runner:      h.runner,
		Catalog:     cat,
		Subscribers: &memSubscribers{ids: map[int64]bool{}},
		Limits:      limits,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) text(key string, args map[string]any) string {
	return h.cat.Lookup("en", key, args)
}

func (h *harness) press(t *testing.T, user int64, cmd Command, payload string) {
	t.Helper()
	ev := Event{Kind: EventButton, UserID: user, ChatID: user, Command: cmd, Payload: payload}
	require.NoError(t, h.d.Handle(context.Background(), ev, h.out))
}

func (h *harness) upload(t *testing.T, user int64, name, content string) {
	t.Helper()
	ev := Event{Kind: EventDocument, UserID: user, ChatID: user, Upload: &staging.Upload{
		FileName: name,
		Size:     int64(len(content)),
		Fetch: func(_ context.Context, dst string) error {
			return os.WriteFile(dst, []byte(content), 0o600)
		},
	}}
	require.NoError(t, h.d.Handle(context.Background(), ev, h.out))
}

func (h *harness) say(t *testing.T, user int64, text string) {
	t.Helper()
	ev := Event{Kind: EventText, UserID: user, ChatID: user, Text: text}
	require.NoError(t, h.d.Handle(context.Background(), ev, h.out))
}

func (h *harness) staged(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.stager.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIdleTextShowsMainMenu(t *testing.T) {
	h := newHarness(t, Limits{})

	h.say(t, 7, "hello")

	assert.Equal(t, MenuMain, h.out.last().Menu)
	assert.Equal(t, h.text("choose_action", nil), h.out.last().Text)
	assert.Equal(t, state.StateIdle, h.store.GetState(7))
}

func TestMergeKeepsUploadOrder(t *testing.T) {
	h := newHarness(t, Limits{})

	h.press(t, 1, CmdMerge, "")
	assert.Equal(t, StateMerging, h.store.GetState(1))
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		h.upload(t, 1, name, "%PDF-"+name)
		assert.Equal(t, i+1, h.out.last().Count)
		assert.Equal(t, MenuMerge, h.out.last().Menu)
	}
	h.press(t, 1, CmdMergeNow, "")

	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ops.OpMerge, calls[0].op)
	assert.Equal(t, []string{"%PDF-a.pdf", "%PDF-b.pdf", "%PDF-c.pdf"}, calls[0].contents)

	sess := h.store.Get(1)
	assert.Equal(t, state.StateIdle, sess.State)
	assert.Empty(t, sess.Files)
	assert.Empty(t, sess.Params)

	require.Len(t, h.out.files, 1)
	assert.True(t, h.out.files[0].existed)
	assert.Empty(t, h.staged(t))
}

func TestMergeNeedsTwoFiles(t *testing.T) {
	h := newHarness(t, Limits{})

	h.press(t, 1, CmdMerge, "")
	h.upload(t, 1, "only.pdf", "%PDF-1.7")
	h.press(t, 1, CmdMergeNow, "")

	assert.Empty(t, h.runner.Calls())
	assert.Equal(t, StateMerging, h.store.GetState(1))
	assert.Len(t, h.store.Files(1), 1)
	assert.Equal(t, h.text("no_pdfs", nil), h.out.last().Text)
}

func TestMergeNowOutsideMergeIsRejected(t *testing.T) {
	h := newHarness(t, Limits{})

	h.press(t, 1, CmdMergeNow, "")

	assert.Empty(t, h.runner.Calls())
	assert.Equal(t, state.StateIdle, h.store.GetState(1))
	assert.Equal(t, MenuCancel, h.out.last().Menu)
}

func TestMergeRejectsOtherTypes(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 1, CmdMerge, "")

	h.upload(t, 1, "photo.png", pngHeader)
	assert.Contains(t, h.out.last().Text, h.text("wrong_type_pdf", nil))

	// Declared as PDF, but the content is not.
	h.upload(t, 1, "fake.pdf", "just some text")
	assert.Contains(t, h.out.last().Text, h.text("wrong_type_pdf", nil))

	assert.Equal(t, StateMerging, h.store.GetState(1))
	assert.Empty(t, h.store.Files(1))
	assert.Empty(t, h.staged(t))
}

func TestMergeLimit(t *testing.T) {
	h := newHarness(t, Limits{MaxMergeFiles: 2})
	h.press(t, 1, CmdMerge, "")
	h.upload(t, 1, "a.pdf", "%PDF-a")
	h.upload(t, 1, "b.pdf", "%PDF-b")

	h.upload(t, 1, "c.pdf", "%PDF-c")

	assert.Equal(t, h.text("limit_reached", map[string]any{"limit": 2}), h.out.last().Text)
	assert.Len(t, h.store.Files(1), 2)
	assert.Len(t, h.staged(t), 2)
}

func TestRotateValidatesAngle(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 3, CmdRotate, "")
	h.upload(t, 3, "scan.pdf", "%PDF-scan")
	assert.Equal(t, StateRotatingWaitAngle, h.store.GetState(3))

	h.say(t, 3, "45")
	assert.Contains(t, h.out.last().Text, h.text("invalid_rotation", nil))
	assert.Equal(t, StateRotatingWaitAngle, h.store.GetState(3))
	assert.Empty(t, h.runner.Calls())

	h.say(t, 3, " 90 ")
	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ops.OpRotate, calls[0].op)
	assert.Equal(t, "90", calls[0].params[ops.ParamAngle])
	assert.Equal(t, "scan.pdf", calls[0].params[ops.ParamFileName])
	assert.Equal(t, state.StateIdle, h.store.GetState(3))

	require.Len(t, h.out.files, 1)
	assert.Equal(t, h.text("pdf_rotated", map[string]any{"angle": "90"}), h.out.files[0].caption)
	assert.Empty(t, h.staged(t))
}

func TestCompressLevelMustBeANumber(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 3, CmdCompress, "")
	h.upload(t, 3, "doc.pdf", "%PDF-doc")
	assert.Equal(t, StateCompressingWaitLevel, h.store.GetState(3))

	for _, in := range []string{"low", "high", "4", "1.5"} {
		h.say(t, 3, in)
		assert.Contains(t, h.out.last().Text, h.text("invalid_level", nil), in)
		assert.Equal(t, StateCompressingWaitLevel, h.store.GetState(3), in)
	}
	assert.Empty(t, h.runner.Calls())

	h.say(t, 3, "1")
	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ops.OpCompress, calls[0].op)
	assert.Equal(t, ops.LevelLow, calls[0].params[ops.ParamLevel])
	assert.Equal(t, state.StateIdle, h.store.GetState(3))
}

func TestUploadWhileWaitingForText(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 3, CmdRotate, "")
	h.upload(t, 3, "scan.pdf", "%PDF-scan")

	h.upload(t, 3, "other.pdf", "%PDF-other")

	assert.Contains(t, h.out.last().Text, h.text("invalid_input", nil))
	assert.Equal(t, StateRotatingWaitAngle, h.store.GetState(3))
	assert.Len(t, h.staged(t), 1)
}

func TestWatermarkPassesTargetThenImage(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 4, CmdWatermark, "")
	h.upload(t, 4, "doc.pdf", "%PDF-doc")
	h.upload(t, 4, "logo.png", pngHeader)

	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ops.OpWatermark, calls[0].op)
	assert.Equal(t, []string{"%PDF-doc", pngHeader}, calls[0].contents)
	assert.Equal(t, "doc.pdf", calls[0].params[ops.ParamFileName])
	assert.Empty(t, h.staged(t))
}

func TestCancelTwiceIsSafe(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 1, CmdMerge, "")
	h.upload(t, 1, "a.pdf", "%PDF-a")

	h.press(t, 1, CmdCancel, "")
	h.press(t, 1, CmdCancel, "")

	assert.Equal(t, state.StateIdle, h.store.GetState(1))
	assert.Empty(t, h.staged(t))
	assert.Equal(t, h.text("operation_cancelled", nil), h.out.last().Text)
}

func TestStartingAnotherFlowDropsFiles(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 1, CmdSplit, "")
	h.upload(t, 1, "a.pdf", "%PDF-a")
	require.Len(t, h.staged(t), 1)

	h.press(t, 1, CmdMerge, "")

	sess := h.store.Get(1)
	assert.Equal(t, StateMerging, sess.State)
	assert.Empty(t, sess.Params)
	assert.Empty(t, h.staged(t))
}

func TestLanguageSwitch(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 5, CmdMerge, "")

	h.press(t, 5, CmdLang, "xx")
	assert.Equal(t, MenuLanguage, h.out.last().Menu)
	assert.Equal(t, StateMerging, h.store.GetState(5))

	h.press(t, 5, CmdLang, "fa")
	assert.Equal(t, "fa", h.store.Language(5))
	assert.Equal(t, state.StateIdle, h.store.GetState(5))
	assert.Equal(t, MenuMain, h.out.last().Menu)
	assert.Equal(t, "fa", h.out.last().Lang)

	h.press(t, 5, CmdHelp, "")
	assert.Equal(t, "fa", h.out.last().Lang)
}

func TestConcurrentImageUploads(t *testing.T) {
	h := newHarness(t, Limits{})
	h.press(t, 9, CmdImagesToPDF, "")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := Event{Kind: EventPhoto, UserID: 9, Upload: &staging.Upload{
				FileName: fmt.Sprintf("p%d.png", i),
				Fetch: func(_ context.Context, dst string) error {
					return os.WriteFile(dst, []byte(pngHeader), 0o600)
				},
			}}
			assert.NoError(t, h.d.Handle(context.Background(), ev, h.out))
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.store.Files(9), n)
	seen := map[int]bool{}
	for _, r := range h.out.replies {
		if r.Menu == MenuDone {
			seen[r.Count] = true
		}
	}
	assert.Len(t, seen, n)

	h.press(t, 9, CmdImagesDone, "")
	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].inputs, n)
}

func TestUnlockRetriesOnWrongPassword(t *testing.T) {
	h := newHarness(t, Limits{})
	h.runner.errs = []error{ops.ErrWrongPassword}
	h.press(t, 2, CmdUnlock, "")
	h.upload(t, 2, "secret.pdf", "%PDF-secret")

	h.say(t, 2, "guess")

	assert.Equal(t, StateUnlockingWaitPassword, h.store.GetState(2))
	assert.Contains(t, h.out.last().Text, h.text("password_incorrect", nil))
	target, ok := h.store.GetParam(2, ParamTarget)
	require.True(t, ok)
	assert.FileExists(t, target)

	h.say(t, 2, "right")

	calls := h.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "right", calls[1].params[ops.ParamPassword])
	assert.Equal(t, "secret.pdf", calls[1].params[ops.ParamFileName])
	assert.Equal(t, state.StateIdle, h.store.GetState(2))
	assert.Empty(t, h.staged(t))
}

func TestOperationErrorIsReported(t *testing.T) {
	h := newHarness(t, Limits{})
	h.runner.errs = []error{ops.ErrInvalidPages}
	h.press(t, 6, CmdExtractPages, "")
	h.upload(t, 6, "book.pdf", "%PDF-book")

	h.say(t, 6, "99-100")

	assert.Equal(t, h.text("invalid_pages", nil), h.out.last().Text)
	assert.Equal(t, state.StateIdle, h.store.GetState(6))
	assert.Empty(t, h.out.files)
	assert.Empty(t, h.staged(t))

	st, err := h.d.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Failed)
	assert.Equal(t, uint64(0), st.Operations)
}

func TestIdleUploads(t *testing.T) {
	h := newHarness(t, Limits{})

	h.upload(t, 8, "doc.pdf", "%PDF-doc")
	assert.Equal(t, MenuMain, h.out.last().Menu)
	assert.Empty(t, h.staged(t))

	h.upload(t, 8, "notes.bin", "???")
	assert.Equal(t, h.text("unsupported", nil), h.out.last().Text)

	h.upload(t, 8, "photo.png", pngHeader)
	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ops.OpImagesToPDF, calls[0].op)
	assert.Equal(t, state.StateIdle, h.store.GetState(8))
}

func TestSubscriptionToggles(t *testing.T) {
	h := newHarness(t, Limits{})

	h.press(t, 1, CmdSubscribe, "")
	assert.Equal(t, h.text("subscribed", nil), h.out.last().Text)
	h.press(t, 1, CmdSubscribe, "")
	assert.Equal(t, h.text("already_subscribed", nil), h.out.last().Text)
	h.press(t, 1, CmdUnsubscribe, "")
	assert.Equal(t, h.text("unsubscribed", nil), h.out.last().Text)

	h.press(t, 2, CmdMerge, "")
	st, err := h.d.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Subscribers)
	assert.Equal(t, 1, st.Active)
}

func TestPendingFeature(t *testing.T) {
	h := newHarness(t, Limits{})

	h.press(t, 1, CmdOCR, "")

	assert.Equal(t, MenuPending, h.out.last().Menu)
	assert.Equal(t, state.StateIdle, h.store.GetState(1))
}
