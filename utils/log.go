package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var Logger *slog.Logger

type LogLevel slog.Level

const (
	LevelDebug = LogLevel(slog.LevelDebug)
	LevelInfo  = LogLevel(slog.LevelInfo)
	LevelWarn  = LogLevel(slog.LevelWarn)
	LevelError = LogLevel(slog.LevelError)
)

// ParseLogLevel maps a level name to a LogLevel, defaulting to info.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const maxSymbolLength = 80

func truncateSymbol(name string) string {
	if len(name) <= maxSymbolLength {
		return name
	}
	return name[:maxSymbolLength] + "..."
}

type PrettyHandler struct {
	slog.Handler
	l *slog.Logger
	w io.Writer
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	// Get level prefix
	level := ""
	switch r.Level {
	case slog.LevelDebug:
		level = color.BlueString("DBG")
	case slog.LevelInfo:
		level = color.GreenString("INF")
	case slog.LevelWarn:
		level = color.YellowString("WRN")
	case slog.LevelError:
		level = color.RedString("ERR")
	}

	// Get all attributes
	var orderedAttrs []struct{ k, v string }
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "level" {
			return true
		}
		orderedAttrs = append(orderedAttrs, struct{ k, v string }{a.Key, a.Value.String()})
		return true
	})

	// Format based on message type
	var output string
	switch msg := r.Message; msg {
	case "match proposed":
		kind, a, b := "", "", ""
		for _, attr := range orderedAttrs {
			switch attr.k {
			case "kind":
				kind = attr.v
			case "a":
				a = color.GreenString(truncateSymbol(attr.v))
			case "b":
				b = color.GreenString(truncateSymbol(attr.v))
			}
		}
		output = fmt.Sprintf("%s matched %s: %s -> %s", level, kind, a, b)

	case "method contents mismatch":
		method, match := "", ""
		for _, attr := range orderedAttrs {
			switch attr.k {
			case "method":
				method = color.YellowString(truncateSymbol(attr.v))
			case "match":
				match = color.YellowString(truncateSymbol(attr.v))
			}
		}
		output = fmt.Sprintf("%s method contents mismatch: %s vs %s", level, method, match)

	case "can't find a match":
		method := ""
		for _, attr := range orderedAttrs {
			if attr.k == "method" {
				method = color.RedString(truncateSymbol(attr.v))
			}
		}
		output = fmt.Sprintf("%s     can't find a match for %s", level, method)

	case "pass summary":
		var step, matched, unmatched, total string
		var progress float64
		for _, attr := range orderedAttrs {
			switch attr.k {
			case "step":
				step = color.New(color.Bold).Sprint(attr.v)
			case "matched":
				matched = color.GreenString(attr.v)
			case "unmatched":
				unmatched = color.YellowString(attr.v)
			case "total":
				total = attr.v
			case "progress":
				progress, _ = strconv.ParseFloat(strings.TrimSuffix(attr.v, "%"), 64)
			}
		}

		progressBar := createProgressBar(progress)
		output = fmt.Sprintf(`%s %s:
	Matched %s classes (%s left unmatched, %s total)
    Progress: %s %.1f%%`,
			level,
			step,
			matched,
			unmatched,
			total,
			progressBar,
			progress,
		)

	case "glue summary":
		var classes, methods, fields string
		for _, attr := range orderedAttrs {
			switch attr.k {
			case "classes":
				classes = color.GreenString(attr.v)
			case "methods":
				methods = color.GreenString(attr.v)
			case "fields":
				fields = color.GreenString(attr.v)
			}
		}
		output = fmt.Sprintf(`%s Glue Summary:
	Classes: %s
	Methods: %s
	Fields:  %s`,
			level,
			classes,
			methods,
			fields,
		)

	default:
		output = fmt.Sprintf("%s %s", level, msg)
		for _, attr := range orderedAttrs {
			output += fmt.Sprintf(" %s=%s",
				color.New(color.Bold).Sprint(attr.k),
				strings.TrimSpace(attr.v),
			)
		}
	}

	// Write to output
	_, err := fmt.Fprintln(h.w, output)
	return err
}

// NewLogger builds a pretty logger writing to w.
func NewLogger(level LogLevel, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.Level(level),
	}

	handler := slog.NewTextHandler(w, opts)
	prettyHandler := &PrettyHandler{handler, nil, w}
	logger := slog.New(prettyHandler)
	prettyHandler.l = logger
	return logger
}

// InitLogger installs a stdout pretty logger as the package and slog
// default.
func InitLogger(level LogLevel) *slog.Logger {
	Logger = NewLogger(level, os.Stdout)
	slog.SetDefault(Logger)
	return Logger
}

// Helper to create a progress bar
func createProgressBar(percent float64) string {
	width := 30
	completed := min(max(int(percent*float64(width)/100), 0), width)

	bar := strings.Builder{}
	bar.WriteString("[")

	// Add completed portion
	bar.WriteString(color.GreenString(strings.Repeat("=", completed)))

	// Add remaining portion
	if completed < width {
		bar.WriteString(color.HiBlackString(strings.Repeat("-", width-completed)))
	}

	bar.WriteString("]")
	return bar.String()
}
