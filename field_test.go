package xsink

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapOrdersByKeyAndPicksKinds(t *testing.T) {
	t.Parallel()

	fs := FromMap(map[string]any{
		"delta":   1.5,
		"alpha":   "a",
		"count":   42,
		"big":     uint64(7),
		"elapsed": 250 * time.Millisecond,
		"ok":      true,
		"cause":   errors.New("boom"),
		"raw":     []byte{0x1},
		"blob":    struct{ X int }{1},
	})

	keys := make([]string, len(fs))
	kinds := make(map[string]Kind, len(fs))
	for i, f := range fs {
		keys[i] = f.K
		kinds[f.K] = f.Kind
	}
	require.Equal(t,
		[]string{"alpha", "big", "blob", "cause", "count", "delta", "elapsed", "ok", "raw"},
		keys, "fields come out sorted by key")

	assert.Equal(t, KindString, kinds["alpha"])
	assert.Equal(t, KindUint64, kinds["big"])
	assert.Equal(t, KindAny, kinds["blob"])
	assert.Equal(t, KindError, kinds["cause"])
	assert.Equal(t, KindInt64, kinds["count"])
	assert.Equal(t, KindFloat64, kinds["delta"])
	assert.Equal(t, KindDuration, kinds["elapsed"])
	assert.Equal(t, KindBool, kinds["ok"])
	assert.Equal(t, KindBytes, kinds["raw"])

	require.Nil(t, FromMap(nil))
}

func TestEventCtxAppendsMapFields(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	logger, err := NewBuilder().WithSink(sink).WithMinLevel(LevelDebug).Build()
	require.NoError(t, err)

	logger.Info().
		Str("first", "kept").
		Ctx(map[string]any{"b": int64(2), "a": "one"}).
		Msg("with context")

	recs := sink.all()
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Fields, 3)
	assert.Equal(t, "first", recs[0].Fields[0].K)
	assert.Equal(t, "a", recs[0].Fields[1].K)
	assert.Equal(t, "b", recs[0].Fields[2].K)
	assert.Equal(t, int64(2), recs[0].Fields[2].Int64)
}
