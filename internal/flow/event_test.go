package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func zipFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:document/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestSniff(t *testing.T) {
	pdf := writeFile(t, "a.pdf", []byte("%PDF-1.7\n%binary"))
	png := writeFile(t, "a.png", []byte(pngHeader))
	text := writeFile(t, "a.txt", []byte("meeting notes\n"))
	junk := writeFile(t, "a.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00})

	assert.True(t, sniff(pdf, InputPDF))
	assert.False(t, sniff(text, InputPDF))
	assert.True(t, sniff(png, InputImage))
	assert.False(t, sniff(pdf, InputImage))

	assert.True(t, sniff(zipFile(t), InputOffice))
	assert.True(t, sniff(text, InputOffice))
	assert.False(t, sniff(junk, InputOffice))
	assert.False(t, sniff(png, InputOffice))

	assert.False(t, sniff(filepath.Join(t.TempDir(), "missing"), InputPDF))
}
