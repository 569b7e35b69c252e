package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware sets the update's rid and log context and emits a sampled
// debug line describing what arrived.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var userID, chatID int64
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
		if ch := c.Chat(); ch != nil {
			chatID = ch.ID
		}
		c.Set("rid", logger.BuildRID(upd.ID, chatID, userID))
		c.Set("update_start", time.Now())
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("input", UpdateKind(upd))}
			if u := c.Sender(); u != nil {
				attrs = append(attrs,
					slog.String("username", logger.SanitizeLimit(u.Username, 64)),
					slog.String("lang", u.LanguageCode),
				)
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Message != nil && upd.Message.Document != nil:
				attrs = append(attrs,
					slog.String("payload", logger.SanitizeLimit(upd.Message.Document.FileName, 128)),
					slog.Int64("size", upd.Message.Document.FileSize),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.Int("payload_len", len(c.Text())))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}

// UpdateKind classifies an update for logs and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil && (upd.Message.Document != nil || upd.Message.Photo != nil):
		return "upload"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}
