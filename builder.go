package xsink

// Config for constructing a Logger.
type Config struct {
	Sinks    []Sink
	MinLevel Level
	Tags     []string
}

// Builder separates construction from representation.
type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{cfg: Config{MinLevel: LevelInfo}}
}

func (b *Builder) WithSink(s Sink) *Builder {
	b.cfg.Sinks = append(b.cfg.Sinks, s)
	return b
}

func (b *Builder) WithMinLevel(l Level) *Builder {
	b.cfg.MinLevel = l
	return b
}

func (b *Builder) WithTags(tags ...string) *Builder {
	b.cfg.Tags = append(b.cfg.Tags, tags...)
	return b
}

// Build constructs the Logger.
func (b *Builder) Build() (*Logger, error) {
	if len(b.cfg.Sinks) == 0 {
		return nil, ErrNoSink
	}
	return newLogger(b.cfg), nil
}
