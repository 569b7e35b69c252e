package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRanges(t *testing.T) {
	got, err := ParseRanges(" 1-3, 5 ,8-", 10)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 3}, {5, 5}, {8, 10}}, got)
	assert.Equal(t, []string{"1-3", "5", "8-10"}, Selection(got))
	assert.Equal(t, 7, Covered(got))

	got, err = ParseRanges("ALL", 4)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 4}}, got)
}

func TestParseRangesRejects(t *testing.T) {
	for _, spec := range []string{"", " , ", "0", "11", "3-1", "a-b", "2-99"} {
		_, err := ParseRanges(spec, 10)
		assert.ErrorIs(t, err, ErrInvalidPages, spec)
	}
}

func TestParseSplitEvery(t *testing.T) {
	got, err := ParseSplit("every 4", 10)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 4}, {5, 8}, {9, 10}}, got)

	_, err = ParseSplit("every 0", 10)
	assert.ErrorIs(t, err, ErrInvalidPages)

	got, err = ParseSplit("1-5,6-10", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseAngleAndLevel(t *testing.T) {
	a, err := ParseAngle(" 90 ")
	require.NoError(t, err)
	assert.Equal(t, 90, a)

	_, err = ParseAngle("45")
	assert.ErrorIs(t, err, ErrInvalidParam)

	l, err := ParseLevel("3")
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, l)

	_, err = ParseLevel("4")
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestOutputName(t *testing.T) {
	req := Request{Params: map[string]string{ParamFileName: "My Report (v2).pdf"}}
	assert.Equal(t, "My_Report_v2_rotated.pdf", outputName(req, "rotated", ".pdf"))

	assert.Equal(t, "document_merged.pdf", outputName(Request{}, "merged", ".pdf"))
	assert.True(t, IsOffice("budget.XLSX"))
	assert.False(t, IsOffice("scan.pdf"))
}
