// ABOUTME: Tests for SampleBuffer
// ABOUTME: Covers capacity invariants, FIFO order and all-or-nothing appends
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBufferNeverExceedsCapacity(t *testing.T) {
	buf := NewSampleBuffer(5)

	for i := 0; i < 5; i++ {
		require.True(t, buf.TryAppend(float32(i)))
	}

	assert.False(t, buf.TryAppend(99), "append past capacity should fail")
	assert.Equal(t, 5, buf.Len())
	assert.Equal(t, 0, buf.Free())

	for i := 0; i < 5; i++ {
		assert.Equal(t, float32(i), buf.At(i), "prior contents should be intact")
	}
}

func TestSampleBufferAppendRangeAllOrNothing(t *testing.T) {
	buf := NewSampleBuffer(4)
	require.True(t, buf.TryAppendSlice([]float32{1, 2}))

	assert.False(t, buf.TryAppendRange([]float32{3, 4, 5}, 0, 3))
	assert.Equal(t, 2, buf.Len(), "failed append must not partially write")

	assert.True(t, buf.TryAppendRange([]float32{9, 3, 4, 9}, 1, 2))
	assert.Equal(t, []float32{1, 2, 3, 4}, buf.Samples())
}

func TestSampleBufferAppendRangeRejectsBadBounds(t *testing.T) {
	buf := NewSampleBuffer(10)
	assert.False(t, buf.TryAppendRange([]float32{1, 2}, 1, 2))
	assert.False(t, buf.TryAppendRange([]float32{1, 2}, -1, 1))
	assert.Equal(t, 0, buf.Len())
}

func TestSampleBufferSkipRoundTrip(t *testing.T) {
	src := []float32{0, 1, 2, 3, 4, 5, 6, 7}

	for k := 0; k <= len(src); k++ {
		buf := NewSampleBuffer(len(src))
		require.True(t, buf.TryAppendSlice(src))

		buf.Skip(k)

		require.Equal(t, len(src)-k, buf.Len())
		for i := 0; i < buf.Len(); i++ {
			assert.Equal(t, src[k+i], buf.At(i))
		}
	}
}

func TestSampleBufferSkipBeyondCount(t *testing.T) {
	buf := NewSampleBuffer(4)
	require.True(t, buf.TryAppendSlice([]float32{1, 2}))

	buf.Skip(10)

	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 4, buf.Free())
}

func TestSampleBufferCompactsAfterSkip(t *testing.T) {
	buf := NewSampleBuffer(4)
	require.True(t, buf.TryAppendSlice([]float32{1, 2, 3, 4}))
	buf.Skip(3)

	require.True(t, buf.TryAppendSlice([]float32{5, 6, 7}))
	assert.Equal(t, []float32{4, 5, 6, 7}, buf.Samples())
}

func TestSampleBufferCopyFrom(t *testing.T) {
	a := NewSampleBuffer(4)
	b := NewSampleBuffer(3)
	require.True(t, b.TryAppendSlice([]float32{7, 8, 9}))

	require.True(t, a.TryAppend(1))
	assert.True(t, a.TryCopyFrom(b))
	assert.Equal(t, []float32{1, 7, 8, 9}, a.Samples())

	assert.False(t, a.TryCopyFrom(b), "copy into a full buffer should fail")
	assert.False(t, a.TryCopyFrom(a), "self copy that does not fit should fail")
	assert.Equal(t, []float32{1, 7, 8, 9}, a.Samples())
}

func TestSampleBufferSelfCopy(t *testing.T) {
	buf := NewSampleBuffer(5)
	require.True(t, buf.TryAppendSlice([]float32{0, 1, 2, 3}))
	buf.Skip(2)

	// head is offset, so the copy compacts first
	assert.True(t, buf.TryCopyFrom(buf))
	assert.Equal(t, []float32{2, 3, 2, 3}, buf.Samples())

	assert.True(t, NewSampleBuffer(0).TryCopyFrom(NewSampleBuffer(0)))
	empty := NewSampleBuffer(2)
	assert.True(t, empty.TryCopyFrom(empty))
	assert.Equal(t, 0, empty.Len())
}

func TestSampleBufferSilenceAndClear(t *testing.T) {
	buf := NewSampleBuffer(6)
	require.True(t, buf.TryAppendSlice([]float32{1, 1}))
	require.True(t, buf.AppendSilence(4))
	assert.Equal(t, []float32{1, 1, 0, 0, 0, 0}, buf.Samples())
	assert.False(t, buf.AppendSilence(1))

	buf.Clear()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 6, buf.Cap())
}
