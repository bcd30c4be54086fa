package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled package logger used by the API server and the maintenance binary.
// Init(level) picks the threshold, SetFormat("json") switches to one JSON
// object per line. With(k, v, ...) attaches key/value fields.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu         sync.RWMutex
	logger     *log.Logger = log.New(os.Stdout, "", 0)
	level      Level       = LevelInfo
	jsonFormat bool
	exit                   = os.Exit
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetFormat selects "json" or plain text output (anything else).
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	jsonFormat = strings.EqualFold(strings.TrimSpace(f), "json")
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

// Entry is a set of fields attached to subsequent log lines.
type Entry struct {
	fields []interface{}
}

// With returns an Entry carrying the given key/value pairs.
func With(kv ...interface{}) *Entry {
	return &Entry{fields: kv}
}

// With returns a copy of e extended with more key/value pairs.
func (e *Entry) With(kv ...interface{}) *Entry {
	f := make([]interface{}, 0, len(e.fields)+len(kv))
	f = append(f, e.fields...)
	f = append(f, kv...)
	return &Entry{fields: f}
}

func (e *Entry) write(l Level, msg string) {
	mu.RLock()
	js, out := jsonFormat, logger
	mu.RUnlock()

	now := time.Now().Format(time.RFC3339)
	if js {
		rec := map[string]interface{}{"time": now, "level": levelNames[l], "msg": msg}
		for i := 0; i+1 < len(e.fields); i += 2 {
			rec[fmt.Sprint(e.fields[i])] = e.fields[i+1]
		}
		b, err := json.Marshal(rec)
		if err != nil {
			out.Printf("%s [ERROR] log marshal failed: %v", now, err)
			return
		}
		out.Print(string(b))
		return
	}
	var sb strings.Builder
	sb.WriteString(now)
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(levelNames[l]))
	sb.WriteString("] ")
	sb.WriteString(msg)
	for i := 0; i+1 < len(e.fields); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", e.fields[i], e.fields[i+1])
	}
	out.Print(sb.String())
}

func (e *Entry) Debugf(format string, v ...interface{}) {
	if shouldLog(LevelDebug) {
		e.write(LevelDebug, fmt.Sprintf(format, v...))
	}
}

func (e *Entry) Infof(format string, v ...interface{}) {
	if shouldLog(LevelInfo) {
		e.write(LevelInfo, fmt.Sprintf(format, v...))
	}
}

func (e *Entry) Warnf(format string, v ...interface{}) {
	if shouldLog(LevelWarn) {
		e.write(LevelWarn, fmt.Sprintf(format, v...))
	}
}

func (e *Entry) Errorf(format string, v ...interface{}) {
	if shouldLog(LevelError) {
		e.write(LevelError, fmt.Sprintf(format, v...))
	}
}

var root = &Entry{}

func Debugf(format string, v ...interface{}) { root.Debugf(format, v...) }
func Infof(format string, v ...interface{})  { root.Infof(format, v...) }
func Warnf(format string, v ...interface{})  { root.Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { root.Errorf(format, v...) }

func Fatalf(format string, v ...interface{}) {
	root.write(LevelFatal, fmt.Sprintf(format, v...))
	exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	if s, ok := levelNames[level]; ok {
		return s
	}
	return "info"
}
