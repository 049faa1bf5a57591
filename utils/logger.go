/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

// LogOptions configures every logger created by NewLogger.
type LogOptions struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"` // text or json
	FileEnabled bool   `json:"file_enabled" yaml:"file_enabled" mapstructure:"file_enabled"`
	FileDir     string `json:"file_dir" yaml:"file_dir" mapstructure:"file_dir"`
	MaxAgeDays  int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
}

const timestampLayout = "2006-01-02 15:04:05.000"

var (
	optionsMu      sync.RWMutex
	options        = LogOptions{Level: "info", Format: EnvDefaultString("LOG_FORMAT", "text"), FileDir: "logs"}
	consoleOut     io.Writer = os.Stdout
	loggerRegistry           = map[string]*logrus.Logger{}
)

// Configure applies opts to loggers created afterwards and re-levels the
// ones already registered.
func Configure(opts LogOptions) {
	optionsMu.Lock()
	if opts.FileDir == "" {
		opts.FileDir = "logs"
	}
	options = opts
	lvl := ParseLogLevel(opts.Level)
	for _, l := range loggerRegistry {
		l.SetLevel(lvl)
	}
	optionsMu.Unlock()
}

// SetConsoleOutput redirects console output of loggers created afterwards.
func SetConsoleOutput(w io.Writer) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	consoleOut = w
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns the named logger, creating and registering it on first
// use. Loggers with the same name are shared.
func NewLogger(name string) *logrus.Logger {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}

	l := logrus.New()
	l.SetOutput(consoleOut)
	l.SetLevel(ParseLogLevel(options.Level))
	l.SetReportCaller(true)
	if strings.EqualFold(options.Format, "json") {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, Color: true, NameWidth: 10})
	}
	if options.FileEnabled {
		if err := AddDailyRollingFileHook(l, name, options.FileDir, options.MaxAgeDays); err != nil {
			l.WithError(err).Warn("file logging disabled")
		}
	}
	loggerRegistry[name] = l
	return l
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, level string) bool {
	optionsMu.RLock()
	l, ok := loggerRegistry[name]
	optionsMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(level))
	return true
}

// Log4jColorFormatter renders "ts LEVEL pid --- [name] file:line : msg k=v".
type Log4jColorFormatter struct {
	LoggerName string
	Color      bool
	NameWidth  int
}

func (f *Log4jColorFormatter) Format(e *logrus.Entry) ([]byte, error) {
	lvl := fmt.Sprintf("%5s", strings.ToUpper(e.Level.String()))
	name := f.LoggerName
	if f.NameWidth > 0 && len(name) > f.NameWidth {
		name = name[:f.NameWidth]
	}
	name = fmt.Sprintf("%*s", f.NameWidth, name)
	if f.Color {
		lvl = colorLevel(lvl, e.Level)
		name = colorWrap(name, ansiCyan)
	}

	var b strings.Builder
	b.WriteString(e.Time.Format(timestampLayout))
	b.WriteString(" ")
	b.WriteString(lvl)
	fmt.Fprintf(&b, " %-6d --- [%s]", os.Getpid(), name)
	if e.Caller != nil {
		fmt.Fprintf(&b, " %s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	}
	b.WriteString(" : ")
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName string
}

func (f *JSONLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	rec := map[string]interface{}{
		"time":    e.Time.Format(timestampLayout),
		"level":   e.Level.String(),
		"logger":  f.LoggerName,
		"message": e.Message,
	}
	if e.Caller != nil {
		rec["caller"] = fmt.Sprintf("%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	}
	for k, v := range e.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		rec[k] = v
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// levelFileHook writes entries to one file per level under dir/<date>/.
type levelFileHook struct {
	formatter logrus.Formatter
	writers   map[logrus.Level]*dailyFileWriter
}

func (h *levelFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *levelFileHook) Fire(e *logrus.Entry) error {
	w, ok := h.writers[e.Level]
	if !ok {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

type dailyFileWriter struct {
	dir        string
	level      string
	maxAgeDays int
	mu         sync.Mutex
	date       string
	file       *os.File
}

func (w *dailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	today := time.Now().Format("2006-01-02")
	if w.file == nil || w.date != today {
		if w.file != nil {
			_ = w.file.Close()
		}
		dayDir := filepath.Join(w.dir, today)
		if err := os.MkdirAll(dayDir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(dayDir, w.level+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file, w.date = f, today
		w.prune()
	}
	return w.file.Write(p)
}

// prune removes date directories older than maxAgeDays; 0 keeps everything.
func (w *dailyFileWriter) prune() {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.maxAgeDays)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		d, err := time.ParseInLocation("2006-01-02", e.Name(), time.Local)
		if err != nil || !e.IsDir() {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.dir, e.Name()))
		}
	}
}

// AddDailyRollingFileHook makes l additionally write plain-text entries to
// dir/<yyyy-mm-dd>/<level>.log.
func AddDailyRollingFileHook(l *logrus.Logger, name, dir string, maxAgeDays int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	writers := make(map[logrus.Level]*dailyFileWriter)
	for _, lvl := range []logrus.Level{logrus.TraceLevel, logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel} {
		writers[lvl] = &dailyFileWriter{dir: dir, level: lvl.String(), maxAgeDays: maxAgeDays}
	}
	writers[logrus.FatalLevel] = writers[logrus.ErrorLevel]
	writers[logrus.PanicLevel] = writers[logrus.ErrorLevel]
	l.AddHook(&levelFileHook{formatter: &Log4jColorFormatter{LoggerName: name, NameWidth: 10}, writers: writers})
	return nil
}

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorWrap(s, ansiRed)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	default:
		return colorWrap(s, ansiMagenta)
	}
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
