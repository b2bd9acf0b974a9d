package xsink

import (
	"sort"
	"time"
)

// Kind discriminates the value a Field carries.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt64
	KindUint64
	KindFloat64
	KindBool
	KindDuration
	KindTime
	KindError
	KindBytes
	KindAny
)

// Field is one key/value entry of a record's structured context. The union
// layout keeps reflection off the write path: formatters switch on Kind and
// read the matching slot directly.
type Field struct {
	K       string
	Kind    Kind
	Str     string
	Int64   int64
	Uint64  uint64
	Float64 float64
	Bool    bool
	Dur     time.Duration
	Time    time.Time
	Err     error
	Bytes   []byte
	Any     any
}

// Typed constructors, one per Kind.

func Str(k, v string) Field             { return Field{K: k, Kind: KindString, Str: v} }
func Int64(k string, v int64) Field     { return Field{K: k, Kind: KindInt64, Int64: v} }
func Uint64(k string, v uint64) Field   { return Field{K: k, Kind: KindUint64, Uint64: v} }
func Float64(k string, v float64) Field { return Field{K: k, Kind: KindFloat64, Float64: v} }
func Bool(k string, v bool) Field       { return Field{K: k, Kind: KindBool, Bool: v} }
func Dur(k string, v time.Duration) Field {
	return Field{K: k, Kind: KindDuration, Dur: v}
}
func Time(k string, v time.Time) Field { return Field{K: k, Kind: KindTime, Time: v} }
func Err(k string, e error) Field      { return Field{K: k, Kind: KindError, Err: e} }
func Bytes(k string, b []byte) Field   { return Field{K: k, Kind: KindBytes, Bytes: b} }
func Any(k string, v any) Field        { return Field{K: k, Kind: KindAny, Any: v} }

// FromMap converts a string-keyed context map into fields ordered by key, so
// two renderings of the same context always agree. Values of the builtin
// numeric, bool, time, error and byte-slice types get their typed Kind;
// anything else lands in KindAny.
func FromMap(m map[string]any) []Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fs := make([]Field, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, fieldOf(k, m[k]))
	}
	return fs
}

func fieldOf(k string, v any) Field {
	switch tv := v.(type) {
	case string:
		return Str(k, tv)
	case int:
		return Int64(k, int64(tv))
	case int32:
		return Int64(k, int64(tv))
	case int64:
		return Int64(k, tv)
	case uint:
		return Uint64(k, uint64(tv))
	case uint64:
		return Uint64(k, tv)
	case float32:
		return Float64(k, float64(tv))
	case float64:
		return Float64(k, tv)
	case bool:
		return Bool(k, tv)
	case time.Duration:
		return Dur(k, tv)
	case time.Time:
		return Time(k, tv)
	case error:
		return Err(k, tv)
	case []byte:
		return Bytes(k, tv)
	default:
		return Any(k, v)
	}
}

func copyFields(dst, src []Field) []Field {
	if len(src) == 0 {
		return dst
	}
	return append(dst, src...)
}
