package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqualNullSemantics(t *testing.T) {
	assert.True(t, Null.Equal(Null))
	assert.False(t, Null.Equal(Int(0)))
	assert.False(t, Int(0).Equal(Null))
}

func TestValueEqualNumericPromotion(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2.0)))
	assert.False(t, Int(2).Equal(Float(2.5)))
}

func TestValueTruthy(t *testing.T) {
	assert.False(t, Null.Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.True(t, String("").Truthy())
	assert.True(t, Int(0).Truthy())
}

func TestFromNativeRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	native := map[string]any{
		"name":  "USD",
		"count": 3,
		"ratio": 1.5,
		"tags":  []any{"a", "b"},
		"when":  now,
		"nested": map[string]any{
			"inner": true,
		},
	}
	v := FromNative(native)
	require.Equal(t, KindRecord, v.Kind())
	rec := v.Record()
	assert.Equal(t, "USD", rec.Get("name").Str())
	assert.Equal(t, int64(3), rec.Get("count").Int())
	assert.InDelta(t, 1.5, rec.Get("ratio").Float64(), 0.0001)
	assert.Equal(t, 2, len(rec.Get("tags").Items()))
	assert.True(t, rec.Get("when").Time().Equal(now))
	assert.True(t, rec.Get("nested").Record().Get("inner").Bool())

	back := v.Native().(map[string]any)
	assert.Equal(t, "USD", back["name"])
}

func TestRecordMissingKeyReadsNull(t *testing.T) {
	r := NewRecord()
	assert.True(t, r.Get("missing").IsNull())
	assert.False(t, r.Has("missing"))
}

func TestRecordSetCreatesKeyOnWrite(t *testing.T) {
	r := NewRecord()
	r.Set("a", Int(1))
	assert.True(t, r.Has("a"))
	assert.Equal(t, []string{"a"}, r.Keys())
	r.Set("a", Int(2))
	assert.Equal(t, []string{"a"}, r.Keys(), "overwrite must not duplicate order entry")
}

func TestRecordCloneIsIndependentTopLevel(t *testing.T) {
	r := NewRecord()
	r.Set("a", Int(1))
	clone := r.Clone()
	clone.Set("a", Int(2))
	assert.Equal(t, int64(1), r.Get("a").Int())
	assert.Equal(t, int64(2), clone.Get("a").Int())
}

func TestAccessorReadWrite(t *testing.T) {
	acc := DefaultAccessor
	r := NewRecord()
	target := FromRecord(r)
	require.True(t, acc.CanWrite(target))
	ok := acc.Write(target, "x", Int(5))
	require.True(t, ok)
	v, ok := acc.Read(target, "x")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int())

	v, ok = acc.Read(target, "missing")
	require.True(t, ok)
	assert.True(t, v.IsNull())

	assert.False(t, acc.CanRead(Int(1)))
	assert.False(t, acc.Write(Int(1), "x", Int(1)))
}
