package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{
		{Text: "A", Unique: "lang", Data: "en"},
		{Text: "B", Unique: "lang", Data: "ru"},
		{Text: "C", Unique: "lang", Data: "et"},
	}
	m := InlineButtonsNPerRow(btns, 2)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Len(t, m.InlineKeyboard[1], 1)
	assert.Equal(t, "C", m.InlineKeyboard[1][0].Text)
	assert.Equal(t, "lang", m.InlineKeyboard[1][0].Unique)

	assert.Len(t, InlineButtonsNPerRow(btns, 0).InlineKeyboard, 3)
	assert.Empty(t, InlineButtonsNPerRow(nil, 2).InlineKeyboard)
}

func TestSingleCancelMarkup(t *testing.T) {
	m := SingleCancelMarkup("cancel", "", "")
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 1)
	assert.Equal(t, "❌ Cancel", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "cancel", m.InlineKeyboard[0][0].Data)

	m = SingleCancelMarkup("cancel", "", "Abbrechen")
	assert.Equal(t, "Abbrechen", m.InlineKeyboard[0][0].Text)
}
