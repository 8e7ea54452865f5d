package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"coursegen/internal/logging"
)

// Record is one decoded JSON log line.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Component string
	Message   string
	JobID     string
	// Fields holds every other attribute.
	Fields map[string]any
}

var reservedKeys = map[string]struct{}{
	"ts":                   {},
	"level":                {},
	"msg":                  {},
	"source":               {},
	logging.FieldComponent: {},
	logging.FieldJobID:     {},
}

// ParseRecord decodes a line written by the JSON file handler. ok is false
// for anything that is not a JSON object with a message.
func ParseRecord(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	msg, ok := raw["msg"].(string)
	if !ok {
		return Record{}, false
	}
	rec := Record{Message: msg, Fields: make(map[string]any)}
	if ts, ok := raw["ts"].(string); ok {
		rec.Time, _ = time.Parse(time.RFC3339, ts)
	}
	if level, ok := raw["level"].(string); ok {
		rec.Level = ParseLevel(level)
	}
	rec.Component, _ = raw[logging.FieldComponent].(string)
	rec.JobID, _ = raw[logging.FieldJobID].(string)
	for key, value := range raw {
		if _, reserved := reservedKeys[key]; !reserved {
			rec.Fields[key] = value
		}
	}
	return rec, true
}

// ParseLevel maps a level name to its slog level. Unknown names are info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	JobID     string
	Component string
	MinLevel  slog.Level
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if rec.Level < f.MinLevel {
		return false
	}
	if f.JobID != "" && rec.JobID != f.JobID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	return true
}

// Format renders rec as "15:04:05 LEVEL component: msg key=value ...", with
// the job id first and the remaining fields sorted by key.
func Format(rec Record) string {
	var b strings.Builder
	if !rec.Time.IsZero() {
		b.WriteString(rec.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(levelName(rec.Level))
	b.WriteByte(' ')
	if rec.Component != "" {
		b.WriteString(rec.Component)
		b.WriteString(": ")
	}
	b.WriteString(rec.Message)
	if rec.JobID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldJobID, rec.JobID)
	}
	keys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, formatField(rec.Fields[key]))
	}
	return b.String()
}

func formatField(value any) string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = fmt.Sprintf("%g", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
