// Package router turns a Registry and an input sink into telebot routes.
// Every route logs one handler summary line. Recovery and the update log
// context come from the global middleware chain.
package router

import (
	"log/slog"

	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/callbacks"
	"github.com/m3rciful/pdfbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered slash command. Admin-only commands
// are wrapped with AdminOnlyMiddleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		h := summarized(handlerName(name), def.Handler)
		if def.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
	}
	logger.Info(logger.Background(), "tg.wire", "routes",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

type CallbackOptions struct {
	// NotFound is used when the registry has no fallback of its own.
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every callback query and dispatches it by unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			cb := c.Callback()
			if cb == nil {
				return nil
			}
			_ = c.Respond()
			key, _ := callbacks.Parse(cb)
			extras := []slog.Attr{slog.String("cb_key", key)}

			h, ok := reg.GetCallback(key)
			if !ok || h == nil {
				h = reg.CallbackNotFound()
				if h == nil {
					h = opts.NotFound
				}
				extras = append(extras, slog.String("reason", "not_found"))
			}
			if h == nil {
				h = func(tele.Context) error { return nil }
			}
			return summarize(c, "callback."+handlerName(key), h, extras...)
		},
	}
}

// Inbound receives user input that is not a registered command.
type Inbound interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
	HandleDocument(c tele.Context) error
	HandlePhoto(c tele.Context) error
}

// InputRoutes binds text, document and photo updates. Text typed during an
// active flow always goes to the flow, even when it matches a command alias,
// so a password like "help" is not swallowed.
func InputRoutes(in Inbound, reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		if u := c.Sender(); u != nil && in.InProgress(u.ID) {
			return summarize(c, "flow.text", in.HandleText)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return summarize(c, handlerName(key), cmd.Handler)
			}
		}
		return summarize(c, "text", in.HandleText)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: summarized("document", in.HandleDocument)},
		{Endpoint: tele.OnPhoto, Handler: summarized("photo", in.HandlePhoto)},
	}
}
