package flow

import (
	"strings"
	"testing"

	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
	"github.com/m3rciful/pdfbot/internal/texts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryStartStateHasAnUploadRow(t *testing.T) {
	for _, cmd := range startOrder {
		start, ok := StartFor(cmd)
		require.True(t, ok, cmd)
		_, ok = Lookup(start.State, ChannelUpload)
		assert.True(t, ok, "no upload row for %s", start.State)
	}
}

func TestWaitStatesLeadToARun(t *testing.T) {
	for _, tr := range Transitions() {
		if tr.Action != ActionHold {
			continue
		}
		next, ok := Lookup(tr.Next, ChannelText)
		if !ok {
			next, ok = Lookup(tr.Next, ChannelUpload)
		}
		require.True(t, ok, "hold into %s has no follow-up", tr.Next)
		assert.Equal(t, ActionRun, next.Action)
		assert.NotEmpty(t, PromptFor(tr.Next))
	}
}

func TestRunRowsEndIdle(t *testing.T) {
	registered := map[ops.Op]bool{}
	for _, op := range ops.Defaults(ops.Options{}).Ops() {
		registered[op] = true
	}
	for _, tr := range Transitions() {
		if tr.Action != ActionRun {
			continue
		}
		assert.Equal(t, state.StateIdle, tr.Next, tr.From)
		assert.True(t, registered[tr.Op], "op %s has no adapter", tr.Op)
	}
	for _, term := range terminals {
		assert.True(t, registered[term.Op])
	}
}

func TestTextKeysExist(t *testing.T) {
	cat, err := texts.Load("en")
	require.NoError(t, err)
	missing := func(key string) bool {
		return strings.HasPrefix(cat.Lookup("en", key, nil), "Missing:")
	}

	for _, op := range ops.Defaults(ops.Options{}).Ops() {
		assert.False(t, missing(progressKeys[op]), "progress text for %s", op)
		assert.False(t, missing(doneKeys[op]), "done text for %s", op)
	}
	for _, tr := range Transitions() {
		if tr.Prompt != "" {
			assert.False(t, missing(tr.Prompt), tr.Prompt)
		}
	}
	for _, s := range starts {
		assert.False(t, missing(s.Prompt), s.Prompt)
	}
	for _, key := range wrongTypeKeys {
		assert.False(t, missing(key), key)
	}
	for _, key := range invalidTextKeys {
		assert.False(t, missing(key), key)
	}
	for _, key := range failureKeys {
		assert.False(t, missing(key), key)
	}
}

func TestCommandsParse(t *testing.T) {
	for _, cmd := range Commands() {
		got, ok := ParseCommand(string(cmd))
		assert.True(t, ok, cmd)
		assert.Equal(t, cmd, got)
	}
	got, ok := ParseCommand("do_merge")
	assert.True(t, ok)
	assert.Equal(t, CmdMergeNow, got)

	_, ok = ParseCommand("nope")
	assert.False(t, ok)
}

func TestValidateText(t *testing.T) {
	cases := []struct {
		accept Accept
		in     string
		want   string
		ok     bool
	}{
		{AcceptAngle, "180", "180", true},
		{AcceptAngle, "45", "", false},
		{AcceptLevel, "2", ops.LevelMedium, true},
		{AcceptLevel, " 3 ", ops.LevelHigh, true},
		{AcceptLevel, "max", "", false},
		{AcceptLevel, "low", "", false},
		{AcceptLevel, "4", "", false},
		{AcceptLevel, "0", "", false},
		{AcceptPages, " 1-3,5 ", "1-3,5", true},
		{AcceptPages, "   ", "", false},
		{AcceptPages, strings.Repeat("1,", 300), strings.Repeat("1,", 300), true},
		{AcceptPassword, " p w ", " p w ", true},
		{AcceptPassword, "  ", "  ", true},
		{AcceptPassword, "", "", false},
		{AcceptPassword, strings.Repeat("x", maxPasswordLen+1), "", false},
	}
	for _, c := range cases {
		got, ok := validateText(c.accept, c.in)
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.Equal(t, c.want, got, c.in)
		}
	}
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2 MB", humanSize(2<<20))
	assert.Equal(t, "0 B", humanSize(0))
}
