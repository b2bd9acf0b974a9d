package xsink

import (
	"fmt"
	"runtime"
	"time"

	"github.com/trickstertwo/xclock"
)

// Record is the immutable value handed to sinks. It is created once per log
// call and never mutated afterwards; sinks own it only while it is buffered.
type Record struct {
	At      time.Time
	Level   Level
	Message string
	Fields  []Field
	Tags    []string
	Err     *ErrInfo
}

// ErrInfo captures an error attached to a Record: its type name, message and
// the stack of the site that attached it.
type ErrInfo struct {
	Name    string
	Message string
	Stack   string
}

// NewRecord builds a Record stamped with the single authoritative timestamp
// from xclock.
func NewRecord(level Level, msg string, fields []Field, tags []string, err error) Record {
	r := Record{
		At:      xclock.Now(),
		Level:   level,
		Message: msg,
		Fields:  fields,
		Tags:    tags,
	}
	if err != nil {
		r.Err = newErrInfo(err)
	}
	return r
}

func newErrInfo(err error) *ErrInfo {
	var buf [4096]byte
	n := runtime.Stack(buf[:], false)
	return &ErrInfo{
		Name:    errName(err),
		Message: err.Error(),
		Stack:   string(buf[:n]),
	}
}

func errName(err error) string {
	type namer interface{ Name() string }
	if n, ok := err.(namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", err)
}
