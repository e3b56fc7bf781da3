// Package logx is a small levelled logger with coloured level tags.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel
)

var (
	debugTag = color.New(color.FgCyan).SprintFunc()
	infoTag  = color.New(color.FgGreen).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed).SprintFunc()
	fatalTag = color.New(color.FgHiRed, color.Bold).SprintFunc()
)

// sink is shared by every Logger so one SetOutput redirects all components.
type sink struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
}

var std = &sink{
	out:   log.New(os.Stdout, "", log.LstdFlags),
	level: InfoLevel,
}

// Logger tags lines with a component prefix such as "[meter]".
type Logger struct {
	prefix string
	s      *sink
}

// New returns a logger for the named component.
func New(component string) *Logger {
	return &Logger{prefix: "[" + component + "] ", s: std}
}

// SetLevel sets the minimum level emitted by every logger.
func SetLevel(l Level) {
	std.mu.Lock()
	std.level = l
	std.mu.Unlock()
}

// SetOutput redirects every logger. Colour is disabled unless w is a terminal stream.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = log.New(w, "", log.LstdFlags)
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		color.NoColor = true
	}
}

// ParseLevel maps a config string to a Level; unknown strings give InfoLevel.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "off":
		return OffLevel
	default:
		return InfoLevel
	}
}

func (l *Logger) emit(lv Level, tag func(a ...interface{}) string, name, format string, v ...interface{}) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if lv < l.s.level {
		return
	}
	l.s.out.Print(tag(name) + " " + l.prefix + fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.emit(DebugLevel, debugTag, "DEBUG", format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.emit(InfoLevel, infoTag, "INFO", format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.emit(WarnLevel, warnTag, "WARN", format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.emit(ErrorLevel, errorTag, "ERROR", format, v...)
}

// Fatalf logs at the highest level regardless of the configured threshold.
// It does not exit; callers decide how to fail.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.emit(OffLevel, fatalTag, "FATAL", format, v...)
}
