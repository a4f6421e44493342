// Package logger builds the slog loggers used by the jwtdebug CLI.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format represents logger output format.
type Format string

const (
	// FormatText writes compact "[component] message key=value" lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
)

const colorReset = "\033[0m"

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[35m",
	slog.LevelInfo:  "\033[36m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

// Option configures logger creation.
type Option func(*config)

type config struct {
	level     slog.Level
	format    Format
	output    io.Writer
	component string
	useColors bool
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. Unknown formats fall back to text.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		}
	}
}

// WithOutput sets the destination, ignoring nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithComponent tags every record with a component name.
func WithComponent(name string) Option {
	return func(c *config) { c.component = name }
}

// WithColors forces colored output on or off.
func WithColors(enabled bool) Option {
	return func(c *config) { c.useColors = enabled }
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
	return l, nil
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid log format %q: must be %q or %q", s, FormatText, FormatJSON)
	}
}

// New creates a logger writing to stderr by default. Colors are enabled only
// when NO_COLOR is unset and TERM is not dumb.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:     slog.LevelInfo,
		format:    FormatText,
		output:    os.Stderr,
		useColors: os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb",
	}
	for _, opt := range opts {
		opt(c)
	}

	handlerOpts := &slog.HandlerOptions{Level: c.level}
	if c.format == FormatJSON {
		l := slog.New(slog.NewJSONHandler(c.output, handlerOpts))
		if c.component != "" {
			l = l.With(slog.String("component", c.component))
		}
		return l
	}
	return slog.New(&textHandler{
		out:       c.output,
		mu:        &sync.Mutex{},
		level:     c.level,
		component: c.component,
		useColors: c.useColors,
	})
}

// textHandler prints records as "LEVEL [component] message key=value".
type textHandler struct {
	out       io.Writer
	mu        *sync.Mutex
	level     slog.Level
	component string
	useColors bool
	attrs     []slog.Attr
	group     string
}

func (h *textHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	level := r.Level.String()
	if h.useColors {
		level = levelColors[r.Level] + level + colorReset
	}
	b.WriteString(level)
	if h.component != "" {
		fmt.Fprintf(&b, " [%s]", h.component)
	}
	b.WriteString(" ")
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), qualify(h.group, attrs)...)
	return &clone
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func qualify(group string, attrs []slog.Attr) []slog.Attr {
	if group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: group + "." + a.Key, Value: a.Value}
	}
	return out
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, inner := range a.Value.Group() {
			writeAttr(b, key, inner)
		}
		return
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}
