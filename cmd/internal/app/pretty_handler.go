package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one colored line per record for local runs:
//
//	15:04:05.000 WRN join.reconcile.unattributed pass=01J.. guild=g1 member=u1 @reconciler.go:72
//
// Attributes added through With are rendered once and reused.
type prettyHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool

	prefix string // group path applied to record attrs
	pre    string // rendered With attrs
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(r.Level))
	b.WriteByte(' ')
	msgColor := ansiBright
	if r.Level >= slog.LevelError {
		msgColor = ansiRed
	}
	b.WriteString(paint(r.Message, msgColor, h.color))
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})

	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" ")
			b.WriteString(paint("@"+filepath.Base(f.File)+":"+strconv.Itoa(f.Line), ansiDim, h.color))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	cp := *h
	cp.pre = b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name = strings.TrimSpace(name); name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, prefix, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}

	key, val, ok := h.format(a.Key, a.Value)
	if !ok {
		return
	}
	b.WriteByte(' ')
	b.WriteString(paint(prefix+key+"=", ansiDim, h.color))
	b.WriteString(val)
}

// keyStyles shortens and colors the identifiers the bot logs on most lines.
var keyStyles = map[string]struct {
	short string
	color string
}{
	"pass_id":     {"pass", ansiDim},
	"request_id":  {"req", ansiDim},
	"guild_id":    {"guild", ansiBlue},
	"member_id":   {"member", ansiMagenta},
	"author_id":   {"author", ansiMagenta},
	"channel_id":  {"chan", ansiBlue},
	"invite_code": {"invite", ansiCyan},
	"team_id":     {"team", ansiCyan},
	"email_fp":    {"email", ansiDim},
	"path":        {"path", ansiCyan},
}

// format returns the rendered key and value. Redundant keys report false.
func (h *prettyHandler) format(key string, v slog.Value) (string, string, bool) {
	if st, ok := keyStyles[key]; ok {
		return st.short, paint(quote(v.String()), st.color, h.color), true
	}
	switch key {
	case "err":
		return key, paint(quote(v.String()), ansiRed, h.color), true
	case "status_class":
		// status carries the same information.
		return "", "", false
	case "status":
		n, err := strconv.Atoi(v.String())
		if err != nil {
			break
		}
		return key, paint(v.String(), statusColor(n), h.color), true
	case "duration_ms":
		if v.Kind() != slog.KindInt64 {
			break
		}
		ms := v.Int64()
		return "took", paint(strconv.FormatInt(ms, 10)+"ms", durationColor(ms), h.color), true
	case "result", "outcome":
		r := v.String()
		if c := resultColor(r); c != "" {
			return key, paint(r, c, h.color), true
		}
	}
	return key, quote(v.String()), true
}

func (h *prettyHandler) levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return paint("ERR", ansiRed+ansiBright, h.color)
	case l >= slog.LevelWarn:
		return paint("WRN", ansiYellow, h.color)
	case l >= slog.LevelInfo:
		return paint("INF", ansiGreen, h.color)
	default:
		return paint("DBG", ansiMagenta, h.color)
	}
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
