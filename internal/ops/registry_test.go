package ops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRun(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	r.Register(OpRotate, AdapterFunc(func(_ context.Context, req Request) (Artifact, error) {
		out := filepath.Join(req.WorkDir, "out.pdf")
		return Artifact{Path: out, Name: "out.pdf"}, os.WriteFile(out, []byte("12345"), 0o600)
	}))

	art, err := r.Run(context.Background(), OpRotate, Request{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, int64(5), art.Size)
	assert.Equal(t, []Op{OpRotate}, r.Ops())
}

func TestRegistryMissingAdapter(t *testing.T) {
	_, err := NewRegistry().Run(context.Background(), OpMerge, Request{})
	assert.ErrorIs(t, err, ErrToolUnavailable)
	assert.Equal(t, "tool_unavailable", Code(err))
}

func TestRegistryReportsTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(OpCompress, AdapterFunc(func(ctx context.Context, _ Request) (Artifact, error) {
		<-ctx.Done()
		return Artifact{}, errors.New("killed")
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, OpCompress, Request{})
	assert.Equal(t, "canceled", Code(err))
}

func TestDefaultsRegistersEveryOp(t *testing.T) {
	ops := Defaults(Options{}).Ops()
	assert.Len(t, ops, 16)
}

func TestToolUnavailable(t *testing.T) {
	tool := Tool{Name: "missing", Bin: "pdfbot-no-such-binary"}
	assert.False(t, tool.Available())
	err := tool.Run(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o600))

	path, name, err := bundleOrSingle(dir, "parts", []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, "parts.zip", name)
	assert.FileExists(t, path)

	path, name, err = bundleOrSingle(dir, "parts", []string{a})
	require.NoError(t, err)
	assert.Equal(t, a, path)
	assert.Equal(t, "a.txt", name)

	_, _, err = bundleOrSingle(dir, "parts", nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
}
