package xsink

// Sink is the uniform contract every delivery target implements. Write must
// never block the producer on delivery I/O and must never surface a delivery
// failure; the returned error is reserved for terminal states (sink closed).
//
// Sinks that hold resources additionally implement Close; the logging API
// type-asserts for it at shutdown.
type Sink interface {
	Write(Record) error
}

// Closer is the optional second half of the sink contract. Close is
// idempotent: the underlying resource is released exactly once.
type Closer interface {
	Close() error
}

// CloseSink closes s if it implements Closer; otherwise it is a no-op.
func CloseSink(s Sink) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
