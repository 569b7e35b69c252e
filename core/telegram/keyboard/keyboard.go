// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one callback button: Unique routes it, Data is its payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for _, row := range rows {
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *m.Data(b.Text, b.Unique, b.Data).Inline())
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}

// InlineButtonsNPerRow lays buttons out n per row; n below 1 means one per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	if n < 1 {
		n = 1
	}
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for len(buttons) > n {
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return InlineButtonsRows(rows...)
}

// SingleCancelMarkup is a keyboard with one cancel button. Empty payload and text fall back to
// "cancel" and "❌ Cancel".
func SingleCancelMarkup(unique, payload, text string) *tele.ReplyMarkup {
	if payload == "" {
		payload = "cancel"
	}
	if text == "" {
		text = "❌ Cancel"
	}
	return InlineButtonsRows([]InlineBtn{{Text: text, Unique: unique, Data: payload}})
}
