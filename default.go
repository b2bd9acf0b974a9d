package xsink

// Default creates a console logger at LevelDebug. No buffering, no timers:
// the safe choice for tools that just want lines on stdout.
func Default() *Logger {
	l, _ := NewBuilder().
		WithSink(NewConsoleSink(ConsoleSinkOptions{MinLevel: LevelTrace})).
		WithMinLevel(LevelDebug).
		Build()
	return l
}

// New creates a default logger (via Default()) and sets it as global.
// It returns the global logger for convenience.
func New() *Logger {
	l := Default()
	SetGlobal(l)
	return l
}

// UseSinks builds a logger over the given sinks with the provided min level,
// sets it as global and returns it. Single line, explicit, no envs.
func UseSinks(min Level, sinks ...Sink) *Logger {
	b := NewBuilder().WithMinLevel(min)
	for _, s := range sinks {
		b.WithSink(s)
	}
	l, _ := b.Build()
	SetGlobal(l)
	return l
}
