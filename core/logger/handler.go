package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

var defaultOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "update_id", "user_id", "chat_id", "handler",
	"state", "from", "to", "op", "code", "input", "cb_key", "outcome",
	"duration_ms", "count", "pages", "size", "messages", "kb",
	"lang", "username", "payload", "mode", "listen", "addr", "path",
	"err", "err_code", "attempts", "backoff_ms", "retryable",
}

type handlerOptions struct {
	level slog.Leveler
	out   io.Writer
	json  bool
	order []string
}

// handler flattens groups into dotted keys and writes one line per record.
type handler struct {
	opts   handlerOptions
	attrs  []slog.Attr
	prefix string
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultOrder
	}
	return &handler{opts: opts}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.opts.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, prefixed(h.prefix, a))
	}
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	a.Key = prefix + a.Key
	return a
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	f := fields{}
	f.set("ts", r.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	f.set("level", r.Level.String())
	for _, a := range h.attrs {
		f.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	f.fromContext(ctx)

	if rid, ok := f["rid"].(string); ok {
		if short := CompactRID(rid); short != rid {
			if h.opts.json {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = short
		}
	}
	if s, _ := f["event"].(string); s == "" {
		msg := r.Message
		if msg == "" {
			msg = "unknown"
		}
		f["event"] = msg
	}
	if s, _ := f["component"].(string); s == "" {
		f["component"] = "app"
	}

	var line []byte
	if h.opts.json {
		var err error
		if line, err = f.json(h.opts.order); err != nil {
			return err
		}
	} else {
		line = f.kv(h.opts.order)
	}
	_, err := h.opts.out.Write(append(line, '\n'))
	return err
}

type fields map[string]any

func (f fields) set(k string, v any) {
	if s, ok := v.(string); ok && s == "" {
		delete(f, k)
		return
	}
	f[k] = v
}

func (f fields) setDefault(k string, v any) {
	if _, ok := f[k]; !ok {
		f.set(k, v)
	}
}

func (f fields) add(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := prefix + a.Key
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			key += "."
		}
		for _, child := range a.Value.Group() {
			f.add(key, child)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v := a.Value; v.Kind() {
	case slog.KindString:
		f.set(key, strings.TrimSpace(v.String()))
	case slog.KindInt64:
		f.set(key, v.Int64())
	case slog.KindUint64:
		f.set(key, v.Uint64())
	case slog.KindFloat64:
		f.set(key, v.Float64())
	case slog.KindBool:
		f.set(key, v.Bool())
	case slog.KindDuration:
		f.set(msKey(key), RoundMS(v.Duration()).Milliseconds())
	case slog.KindTime:
		f.set(key, v.Time().UTC().Format(time.RFC3339Nano))
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			f.set(key, x.Error())
		case fmt.Stringer:
			f.set(key, x.String())
		default:
			f.set(key, x)
		}
	}
}

// msKey renames duration keys: duration -> duration_ms, wait -> wait_ms.
func msKey(k string) string {
	if strings.HasSuffix(k, "_ms") {
		return k
	}
	return k + "_ms"
}

func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	f.setDefault("rid", RIDFrom(ctx))
	f.setDefault("handler", HandlerFrom(ctx))
	if id := UpdateIDFrom(ctx); id != 0 {
		f.setDefault("update_id", id)
	}
	if id := UserIDFrom(ctx); id != 0 {
		f.setDefault("user_id", id)
	}
	if id := ChatIDFrom(ctx); id != 0 {
		f.setDefault("chat_id", id)
	}
}

// keys lists order first, then the remaining keys sorted.
func (f fields) keys(order []string) []string {
	out := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := len(out)
	for k := range f {
		if !seen[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out[rest:])
	return out
}

func (f fields) json(order []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range f.keys(order) {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (f fields) kv(order []string) []byte {
	var b bytes.Buffer
	for i, k := range f.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(f[k])
		if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return b.Bytes()
}
