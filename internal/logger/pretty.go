package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// prettyHandler writes one colourised line per record:
//
//	15:04:05 INFO  [importer] import progress source=outbox.json fraction=0.25
type prettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	styles prettyStyles
	module string
	attrs  string
	prefix string
}

type prettyStyles struct {
	time   lipgloss.Style
	module lipgloss.Style
	key    lipgloss.Style
	levels map[string]lipgloss.Style
}

func newPrettyHandler(w io.Writer, level slog.Leveler) *prettyHandler {
	r := lipgloss.NewRenderer(w)
	return &prettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		styles: prettyStyles{
			time:   r.NewStyle().Foreground(lipgloss.Color("241")),
			module: r.NewStyle().Foreground(lipgloss.Color("63")),
			key:    r.NewStyle().Foreground(lipgloss.Color("245")),
			levels: map[string]lipgloss.Style{
				"TRACE": r.NewStyle().Foreground(lipgloss.Color("240")),
				"DEBUG": r.NewStyle().Foreground(lipgloss.Color("39")),
				"INFO":  r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
				"WARN":  r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
				"ERROR": r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			},
		},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.styles.time.Render(r.Time.Format(time.TimeOnly)))
		b.WriteByte(' ')
	}

	name := levelName(r.Level)
	style, ok := h.styles.levels[name]
	if !ok {
		style = h.styles.levels["INFO"]
	}
	b.WriteString(style.Render(fmt.Sprintf("%-5s", name)))
	b.WriteByte(' ')

	if h.module != "" {
		b.WriteString(h.styles.module.Render("[" + h.module + "]"))
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		h.appendAttr(&b, h.prefix, a)
	}
	next.attrs = b.String()
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *prettyHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, prefix, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(h.styles.key.Render(prefix + a.Key + "="))
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Millisecond {
			d = d.Round(time.Millisecond)
		}
		return d.String()
	case slog.KindFloat64:
		return fmt.Sprintf("%.2f", v.Float64())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}
