package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

var (
	once   sync.Once
	logger *slog.Logger
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

// PrettyHandler prints one status line per record: a colored level tag
// followed by the message and key=value attributes. No timestamps.
type PrettyHandler struct {
	w     io.Writer
	level slog.Leveler
	color bool
	mu    sync.Mutex
}

func NewPrettyHandler(w io.Writer, level slog.Level, color bool) *PrettyHandler {
	return &PrettyHandler{w: w, level: level, color: color}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = gray
		levelText = "DBG"
	case slog.LevelInfo:
		levelColor = green
		levelText = "INF"
	case slog.LevelWarn:
		levelColor = yellow
		levelText = "WRN"
	case slog.LevelError:
		levelColor = red
		levelText = "ERR"
	}

	fmt.Fprintf(h.w, "%s %s", h.paint(levelColor, levelText), r.Message)

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, " %s=%v", h.paint(cyan, a.Key), a.Value)
		return true
	})

	fmt.Fprintln(h.w)
	return nil
}

func (h *PrettyHandler) paint(color, s string) string {
	if !h.color {
		return s
	}
	return color + s + reset
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return h
}

// New returns the process-wide logger, building it on first call. LOG_LEVEL
// selects the minimum level and LOG_FORMAT=json switches to JSON output.
// The logger is also installed as the slog default.
func New() *slog.Logger {
	once.Do(func() {
		level := slog.LevelInfo
		switch os.Getenv("LOG_LEVEL") {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		var handler slog.Handler
		if os.Getenv("LOG_FORMAT") == "json" {
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		} else {
			handler = NewPrettyHandler(os.Stdout, level, colorEnabled(os.Stdout))
		}

		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
	return logger
}

func colorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
