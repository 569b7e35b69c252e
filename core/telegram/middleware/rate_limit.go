package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"

	"github.com/patrickmn/go-cache"
	tele "gopkg.in/telebot.v4"
)

type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds UpdateKind values that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware drops an update when the same user's previous accepted
// update is younger than Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	seen := cache.New(opts.Interval, 10*opts.Interval+time.Minute)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			// Add fails while the previous entry is still live.
			if err := seen.Add(strconv.FormatInt(u.ID, 10), struct{}{}, cache.DefaultExpiration); err != nil {
				logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
					slog.String("status", "rate_limited"),
					slog.String("input", kind),
				)
				if opts.OnLimited != nil {
					return opts.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
