package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{ code string }

func (e *codedErr) Error() string { return "coded" }
func (e *codedErr) Code() string  { return e.code }

type plainErr struct{}

func (plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "WRONG_PASSWORD", errorCode(&codedErr{code: "wrong password"}))
	assert.Equal(t, "INVALID_PAGES", errorCode(fmt.Errorf("run: %w", &codedErr{code: "invalid_pages"})))
	assert.Equal(t, "PLAINERR", errorCode(plainErr{}))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("x")))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "unknown", handlerName("  "))
	assert.Equal(t, "start", handlerName("/start"))
	assert.Equal(t, "merge_now", handlerName("Merge Now"))
}
