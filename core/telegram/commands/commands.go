package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command entry. AdminOnly commands are wrapped in the admin check
// and, like Hidden ones, left out of the published menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
