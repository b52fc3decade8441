package logger

import (
	"io"
	"sync"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Colour per level. Green for normal progress, magenta for recoverable
// problems, red for failures and cyan for debug chatter.
var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiMagenta)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
)

var (
	mu           sync.Mutex
	out          io.Writer = color.Output
	debugEnabled bool
)

// Info logs informational messages in green color.
func Info(format string, a ...any) { write(infoColor, format, a...) }

// Warn logs warning messages in bright magenta color.
func Warn(format string, a ...any) { write(warnColor, format, a...) }

// Error logs error messages in red color.
func Error(format string, a ...any) { write(errorColor, format, a...) }

// Debug logs debug messages in cyan color if enabled, otherwise is a no-op.
func Debug(format string, a ...any) {
	mu.Lock()
	enabled := debugEnabled
	mu.Unlock()
	if !enabled {
		return
	}
	write(debugColor, format, a...)
}

// Init initializes the logger package, specifically enabling or disabling debug logging.
// When disabled, Debug silently ignores its arguments.
func Init(enableDebug bool) {
	mu.Lock()
	defer mu.Unlock()
	debugEnabled = enableDebug
}

// SetOutput redirects every level to w and returns the previous writer.
// A nil writer restores the default colour-aware console writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	if w == nil {
		w = color.Output
	}
	out = w
	return prev
}

func write(c *color.Color, format string, a ...any) {
	mu.Lock()
	w := out
	mu.Unlock()
	_, _ = c.Fprintf(w, format, a...)
}
