package ops

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	cases := map[string]error{
		"wrong_password":     fmt.Errorf("%w: pdfcpu said no", ErrWrongPassword),
		"invalid_pages":      ErrInvalidPages,
		"unsupported_format": ErrUnsupportedFormat,
		"tool_unavailable":   ErrToolUnavailable,
		"timeout":            context.DeadlineExceeded,
		"op_failed":          errors.New("boom"),
	}
	for want, err := range cases {
		wrapped := Wrap(OpMerge, err)
		assert.Equal(t, want, Code(wrapped))

		var opErr *Error
		assert.ErrorAs(t, wrapped, &opErr)
		assert.Equal(t, OpMerge, opErr.Op)
		assert.ErrorIs(t, wrapped, err)
	}
	assert.Nil(t, Wrap(OpMerge, nil))
	assert.Equal(t, "", Code(nil))
}

func TestWrapKeepsInnerOp(t *testing.T) {
	inner := Wrap(OpRotate, ErrInvalidParam)
	outer := Wrap(OpMerge, inner)

	var opErr *Error
	assert.ErrorAs(t, outer, &opErr)
	assert.Equal(t, OpRotate, opErr.Op)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(errors.New("pdfcpu: please provide the correct password")), ErrWrongPassword)
	assert.ErrorIs(t, classify(errors.New("pdfcpu: invalid page selection")), ErrInvalidPages)
	assert.Nil(t, classify(nil))
}
