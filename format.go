package xsink

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Formatter renders a Record into one line. Implementations must be pure:
// no state, no side effects, safe for concurrent use.
type Formatter interface {
	Format(Record) string
}

// TextFormatter renders "ts=... level=... msg=..." lines followed by fields,
// tags and the attached error, logfmt style.
type TextFormatter struct {
	// TimeFormat overrides the timestamp layout; default RFC3339Nano.
	TimeFormat string
}

func (f *TextFormatter) Format(r Record) string {
	layout := f.TimeFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}

	var b strings.Builder
	b.WriteString("ts=")
	b.WriteString(r.At.Format(layout))
	b.WriteString(" level=")
	b.WriteString(r.Level.String())
	b.WriteString(" msg=")
	appendTextString(&b, r.Message)

	for i := range r.Fields {
		b.WriteByte(' ')
		b.WriteString(r.Fields[i].K)
		b.WriteByte('=')
		appendTextValue(&b, &r.Fields[i])
	}
	if len(r.Tags) > 0 {
		b.WriteString(" tags=")
		appendTextString(&b, strings.Join(r.Tags, ","))
	}
	if r.Err != nil {
		b.WriteString(" error=")
		appendTextString(&b, r.Err.Name+": "+r.Err.Message)
	}
	return b.String()
}

func appendTextString(b *strings.Builder, s string) {
	if strings.ContainsAny(s, " \t\n\"=") {
		b.WriteString(strconv.Quote(s))
		return
	}
	b.WriteString(s)
}

func appendTextValue(b *strings.Builder, f *Field) {
	switch f.Kind {
	case KindString:
		appendTextString(b, f.Str)
	case KindInt64:
		b.WriteString(strconv.FormatInt(f.Int64, 10))
	case KindUint64:
		b.WriteString(strconv.FormatUint(f.Uint64, 10))
	case KindFloat64:
		b.WriteString(strconv.FormatFloat(f.Float64, 'g', -1, 64))
	case KindBool:
		b.WriteString(strconv.FormatBool(f.Bool))
	case KindDuration:
		b.WriteString(f.Dur.String())
	case KindTime:
		b.WriteString(f.Time.UTC().Format(time.RFC3339Nano))
	case KindError:
		if f.Err != nil {
			b.WriteString(strconv.Quote(f.Err.Error()))
		} else {
			b.WriteString("null")
		}
	case KindBytes:
		b.WriteString("len:")
		b.WriteString(strconv.Itoa(len(f.Bytes)))
	case KindAny:
		appendTextString(b, anyToString(f.Any))
	default:
		b.WriteString("null")
	}
}

func anyToString(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "unknown"
	}
	return string(out)
}

// JSONFormatter renders one JSON object per record.
type JSONFormatter struct{}

type jsonLine struct {
	TS      string         `json:"ts"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
	Error   *jsonError     `json:"error,omitempty"`
}

type jsonError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (JSONFormatter) Format(r Record) string {
	line := jsonLine{
		TS:      r.At.Format(time.RFC3339Nano),
		Level:   r.Level.String(),
		Message: r.Message,
		Tags:    r.Tags,
	}
	if len(r.Fields) > 0 {
		line.Fields = make(map[string]any, len(r.Fields))
		for i := range r.Fields {
			line.Fields[r.Fields[i].K] = fieldValue(&r.Fields[i])
		}
	}
	if r.Err != nil {
		line.Error = &jsonError{Name: r.Err.Name, Message: r.Err.Message, Stack: r.Err.Stack}
	}
	out, err := json.Marshal(line)
	if err != nil {
		// Only unmarshalable KindAny values can land here; degrade to the
		// text rendering rather than drop the record.
		return (&TextFormatter{}).Format(r)
	}
	return string(out)
}

func fieldValue(f *Field) any {
	switch f.Kind {
	case KindString:
		return f.Str
	case KindInt64:
		return f.Int64
	case KindUint64:
		return f.Uint64
	case KindFloat64:
		return f.Float64
	case KindBool:
		return f.Bool
	case KindDuration:
		return f.Dur.String()
	case KindTime:
		return f.Time.UTC().Format(time.RFC3339Nano)
	case KindError:
		if f.Err != nil {
			return f.Err.Error()
		}
		return nil
	case KindBytes:
		return len(f.Bytes)
	case KindAny:
		return f.Any
	default:
		return nil
	}
}
