// Package logx is the structured logger used throughout atticd: a thin
// wrapper over charmbracelet/log that fixes a consistent field set
// (component name, timestamp format) for every subsystem.
//
// The teacher's go.mod already requires charmbracelet/log, but none of its
// cgo-heavy sources actually call into it; this package is where that
// dependency finally gets used, in the ambient role go.mod implies.
package logx

import (
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// timestampLayout is the fixed strftime pattern Stamp uses, matching the
// %Y-%m-%d style the teacher's saved-audio code already uses for its own
// timestamps. No config key or flag overrides it.
const timestampLayout = "%Y-%m-%d %H:%M:%S"

// Logger is the structured logger handed to every subsystem.
type Logger struct {
	*charmlog.Logger
	stamper *strftime.Strftime
}

// New returns a Logger for the named component, writing to stderr with the
// component name as a fixed field.
func New(component string) *Logger {
	base := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	stamper, err := strftime.New(timestampLayout)
	if err != nil {
		// timestampLayout is a constant known to be valid; this can only
		// fail if the constant itself is broken.
		panic(err)
	}

	return &Logger{
		Logger:  base.With("component", component),
		stamper: stamper,
	}
}

// Stamp formats t using the package's strftime layout, for log lines and
// payloads (e.g. saved-session filenames) that want a human timestamp
// distinct from the logger's own prefix.
func (l *Logger) Stamp(t time.Time) string {
	return l.stamper.FormatString(t)
}

// WithChannel returns a derived Logger tagging every line with the given
// AESP channel name, for per-connection log lines.
func (l *Logger) WithChannel(channel string) *Logger {
	return &Logger{Logger: l.Logger.With("channel", channel), stamper: l.stamper}
}
