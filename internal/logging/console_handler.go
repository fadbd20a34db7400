package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var head header
	fields := make([]kv, 0, len(kvs))
	for _, item := range dedupeKVsByKey(kvs) {
		switch item.key {
		case FieldComponent:
			head.component = plainValue(item.value)
			continue
		case FieldSubscriptionID:
			head.subscriptionID = plainValue(item.value)
		case FieldSource:
			head.source = plainValue(item.value)
		}
		fields = append(fields, item)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(fields)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	writeLogHeader(&buf, timestamp, record.Level, head, message, h.addSource, record.Source())
	buf.WriteByte('\n')
	limit := maxInfoFields
	if record.Level < slog.LevelInfo {
		limit = len(fields)
	}
	shown := 0
	for _, item := range fields {
		if record.Level >= slog.LevelInfo && debugOnlyField(item.key) {
			continue
		}
		if shown == limit {
			break
		}
		buf.WriteString("    - ")
		buf.WriteString(item.key)
		buf.WriteString(": ")
		buf.WriteString(fieldValue(item.value, true))
		buf.WriteByte('\n')
		shown++
	}
	if hidden := countVisible(fields, record.Level) - shown; hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

const maxInfoFields = 8

type header struct {
	component      string
	subscriptionID string
	source         string
}

// debugOnlyField reports keys that only add noise at info level.
func debugOnlyField(key string) bool {
	switch key {
	case FieldCycleID, FieldCorrelationID, FieldSubscriptionID, FieldSource:
		return true
	}
	return false
}

func countVisible(fields []kv, level slog.Level) int {
	if level < slog.LevelInfo {
		return len(fields)
	}
	n := 0
	for _, item := range fields {
		if !debugOnlyField(item.key) {
			n++
		}
	}
	return n
}

func writeLogHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, head header, message string, addSource bool, src *slog.Source) {
	buf.WriteString(consoleTime(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if head.component != "" {
		buf.WriteString(" [")
		buf.WriteString(head.component)
		buf.WriteByte(']')
	}
	if subject := composeSubject(head.source, head.subscriptionID); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if message != "" {
		buf.WriteString(" – ")
		buf.WriteString(message)
	}
	if addSource && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
}

func composeSubject(source, subscriptionID string) string {
	source = strings.TrimSpace(source)
	subscriptionID = strings.TrimSpace(subscriptionID)
	parts := make([]string, 0, 2)
	if source != "" {
		parts = append(parts, "@"+source)
	}
	if subscriptionID != "" {
		parts = append(parts, "Sub #"+subscriptionID)
	}
	return strings.Join(parts, " · ")
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	clone := &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key but the last value,
// so a With() override replaces rather than repeats a field.
func dedupeKVsByKey(items []kv) []kv {
	index := make(map[string]int, len(items))
	out := items[:0:0]
	for _, item := range items {
		if item.key == "" {
			continue
		}
		if at, dup := index[item.key]; dup {
			out[at].value = item.value
			continue
		}
		index[item.key] = len(out)
		out = append(out, item)
	}
	return out
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

// flattenAttr expands groups into dotted keys.
func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(prefix[:len(prefix):len(prefix)], attr.Key)
		}
		flattenAttrs(dst, next, val.Group())
		return
	}
	parts := prefix
	if attr.Key != "" {
		parts = append(prefix[:len(prefix):len(prefix)], attr.Key)
	}
	if len(parts) == 0 {
		return
	}
	*dst = append(*dst, kv{key: strings.Join(parts, "."), value: val})
}

func levelLabel(level slog.Level) string {
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
