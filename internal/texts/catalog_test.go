package texts

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFallbacks(t *testing.T) {
	c, err := Load("en")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "fa"}, c.Languages())
	assert.True(t, c.Supports("fa"))
	assert.False(t, c.Supports("de"))

	assert.Equal(t, "✅ Language changed to English!", c.Lookup("en", "language_changed", nil))
	assert.Equal(t, "✅ زبان به فارسی تغییر کرد!", c.Lookup("fa", "language_changed", nil))
	// fa has no split prompt, en is used.
	assert.Equal(t, c.Lookup("en", "send_pdf_for_split", nil), c.Lookup("fa", "send_pdf_for_split", nil))
	assert.Equal(t, c.Lookup("en", "help", nil), c.Lookup("de", "help", nil))
	assert.Equal(t, "Missing: nope", c.Lookup("en", "nope", nil))
}

func TestLookupArgs(t *testing.T) {
	c, err := Load("en")
	require.NoError(t, err)

	got := c.Lookup("en", "file_too_large", Args{"max_size": 50})
	assert.Equal(t, "❌ File is too large. Maximum size is 50MB.", got)

	got = c.Lookup("en", "merge_now", Args{"count": 3})
	assert.Contains(t, got, "(3 files)")
}

func TestEveryLocaleParses(t *testing.T) {
	c, err := Load("en")
	require.NoError(t, err)
	for _, lang := range c.Languages() {
		assert.NotEqual(t, "Missing: welcome", c.Lookup(lang, "welcome", nil), lang)
	}
}

func TestLoadFSRequiresDefault(t *testing.T) {
	fsys := fstest.MapFS{"l/fa.yaml": {Data: []byte("a: b\n")}}
	_, err := LoadFS(fsys, "l", "en")
	assert.Error(t, err)

	fsys["l/en.yaml"] = &fstest.MapFile{Data: []byte("a: c\nn: \"x {n}\"\n")}
	c, err := LoadFS(fsys, "l", "en")
	require.NoError(t, err)
	assert.Equal(t, "b", c.Lookup("fa", "a", nil))
	assert.Equal(t, "x 1", c.Lookup("fa", "n", Args{"n": 1}))
	assert.Equal(t, "Missing: other", c.Lookup("fa", "other", nil))
}
