package keyboards

import (
	"strings"
	"testing"

	"github.com/m3rciful/pdfbot/internal/flow"
	"github.com/m3rciful/pdfbot/internal/texts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryButtonIsAKnownCommand(t *testing.T) {
	for menu, layout := range layouts {
		for _, row := range layout {
			for _, it := range row {
				_, ok := flow.ParseCommand(string(it.cmd))
				assert.True(t, ok, "menu %d: %s", menu, it.cmd)
			}
		}
	}
}

func TestBuildLabelsAndCount(t *testing.T) {
	cat, err := texts.Load("en")
	require.NoError(t, err)

	m := Build(cat, flow.Reply{Menu: flow.MenuMerge, Lang: "en", Count: 3})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	first := m.InlineKeyboard[0][0]
	assert.Contains(t, first.Text, "3")
	assert.Equal(t, string(flow.CmdMergeNow), first.Unique)

	for menu := range layouts {
		for _, row := range Build(cat, flow.Reply{Menu: menu, Lang: "en"}).InlineKeyboard {
			for _, b := range row {
				assert.False(t, strings.HasPrefix(b.Text, "Missing:"), b.Unique)
			}
		}
	}
}

func TestBuildSpecialMenus(t *testing.T) {
	cat, err := texts.Load("en")
	require.NoError(t, err)

	assert.Nil(t, Build(cat, flow.Reply{Menu: flow.MenuNone}))

	lang := Build(cat, flow.Reply{Menu: flow.MenuLanguage})
	require.Len(t, lang.InlineKeyboard, 1)
	assert.Equal(t, "fa", lang.InlineKeyboard[0][1].Data)

	cancel := Build(cat, flow.Reply{Menu: flow.MenuCancel, Lang: "en"})
	require.Len(t, cancel.InlineKeyboard, 1)
	assert.Equal(t, string(flow.CmdCancel), cancel.InlineKeyboard[0][0].Unique)
	assert.Equal(t, cat.Lookup("en", "cancel", nil), cancel.InlineKeyboard[0][0].Text)
}
