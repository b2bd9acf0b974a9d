package xsink

import (
	"sync/atomic"
)

// Logger is the producer-facing API: level filtering, bound fields and tags,
// fan-out to sinks. It is a pure consumer of the Sink contract and never
// learns whether a sink completed synchronously or in the background.
type Logger struct {
	sinks      []Sink
	minLevel   Level
	baseFields []Field
	baseTags   []string
}

func newLogger(cfg Config) *Logger {
	l := &Logger{
		sinks:    append([]Sink(nil), cfg.Sinks...),
		minLevel: cfg.MinLevel,
		baseTags: append([]string(nil), cfg.Tags...),
	}
	if l.minLevel == 0 {
		l.minLevel = LevelInfo
	}
	return l
}

// Facade: global access.
var global atomic.Pointer[Logger]

// SetGlobal sets the global Logger.
func SetGlobal(l *Logger) { global.Store(l) }

// L returns the global Logger; panic if unset to surface misconfig early.
func L() *Logger {
	l := global.Load()
	if l == nil {
		panic("xsink: global logger not set. Build one and call xsink.SetGlobal(...)")
	}
	return l
}

// Enabled reports whether logs at 'level' would be emitted by this logger.
// Use to avoid building fields in hot paths when disabled.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.minLevel
}

// Level entry points returning fluent builders.

func (l *Logger) Trace() *Event { return getEvent(l, LevelTrace) }
func (l *Logger) Debug() *Event { return getEvent(l, LevelDebug) }
func (l *Logger) Info() *Event  { return getEvent(l, LevelInfo) }
func (l *Logger) Warn() *Event  { return getEvent(l, LevelWarn) }
func (l *Logger) Error() *Event { return getEvent(l, LevelError) }
func (l *Logger) Fatal() *Event { return getEvent(l, LevelFatal) }

// With returns a child logger with bound fields.
func (l *Logger) With(fs ...Field) *Logger {
	return &Logger{
		sinks:      l.sinks,
		minLevel:   l.minLevel,
		baseFields: append(copyFields(nil, l.baseFields), fs...),
		baseTags:   l.baseTags,
	}
}

// WithTags returns a child logger whose records carry the extra tags.
func (l *Logger) WithTags(tags ...string) *Logger {
	return &Logger{
		sinks:      l.sinks,
		minLevel:   l.minLevel,
		baseFields: l.baseFields,
		baseTags:   append(append([]string(nil), l.baseTags...), tags...),
	}
}

func (l *Logger) emit(level Level, msg string, evFields []Field, evTags []string, err error) {
	if level < l.minLevel {
		return
	}

	fields := evFields
	if len(l.baseFields) > 0 {
		fields = make([]Field, 0, len(l.baseFields)+len(evFields))
		fields = append(fields, l.baseFields...)
		fields = append(fields, evFields...)
	} else if len(evFields) > 0 {
		// The event's slice returns to the pool after emit; records outlive
		// it inside sink buffers, so they get their own copy.
		fields = copyFields(nil, evFields)
	}

	tags := l.baseTags
	if len(evTags) > 0 {
		tags = make([]string, 0, len(l.baseTags)+len(evTags))
		tags = append(tags, l.baseTags...)
		tags = append(tags, evTags...)
	}

	rec := NewRecord(level, msg, fields, tags, err)
	for _, s := range l.sinks {
		_ = s.Write(rec)
	}
}

// Close closes every sink that holds resources. All sinks are attempted;
// the first error wins.
func (l *Logger) Close() error {
	var first error
	for _, s := range l.sinks {
		if err := CloseSink(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
