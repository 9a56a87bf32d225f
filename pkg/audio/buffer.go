// ABOUTME: Bounded linear sample buffer
// ABOUTME: All-or-nothing appends so producers can detect data loss instead of truncating
package audio

// SampleBuffer is a fixed-capacity FIFO of interleaved samples. It never grows:
// an append that does not fit fails and leaves the buffer untouched.
//
// SampleBuffer is not safe for concurrent use.
type SampleBuffer struct {
	data  []float32
	head  int // logical index 0 lives at data[head]
	count int
}

// NewSampleBuffer allocates a buffer holding up to capacity samples
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &SampleBuffer{data: make([]float32, capacity)}
}

// Cap returns the capacity in samples
func (b *SampleBuffer) Cap() int { return len(b.data) }

// Len returns the number of valid samples
func (b *SampleBuffer) Len() int { return b.count }

// Free returns how many more samples fit
func (b *SampleBuffer) Free() int { return len(b.data) - b.count }

// At returns the i-th valid sample in FIFO order. i must be in [0, Len()).
func (b *SampleBuffer) At(i int) float32 {
	return b.data[b.head+i]
}

// Samples returns the valid region. The slice aliases internal storage and is
// only valid until the next mutating call.
func (b *SampleBuffer) Samples() []float32 {
	return b.data[b.head : b.head+b.count]
}

// TryAppend appends one sample, failing if the buffer is full
func (b *SampleBuffer) TryAppend(sample float32) bool {
	if !b.reserve(1) {
		return false
	}
	b.data[b.head+b.count] = sample
	b.count++
	return true
}

// TryAppendRange appends src[start:start+length]. Nothing is written if it does not fit.
func (b *SampleBuffer) TryAppendRange(src []float32, start, length int) bool {
	if start < 0 || length < 0 || start+length > len(src) {
		return false
	}
	if !b.reserve(length) {
		return false
	}
	copy(b.data[b.head+b.count:], src[start:start+length])
	b.count += length
	return true
}

// TryAppendSlice appends all of src or nothing
func (b *SampleBuffer) TryAppendSlice(src []float32) bool {
	return b.TryAppendRange(src, 0, len(src))
}

// TryCopyFrom appends the valid region of other or nothing. other may be b,
// which duplicates the current contents.
func (b *SampleBuffer) TryCopyFrom(other *SampleBuffer) bool {
	if other != b {
		return b.TryAppendSlice(other.Samples())
	}
	n := b.count
	if !b.reserve(n) {
		return false
	}
	// reserve may have compacted, so read the source after it
	copy(b.data[b.head+n:b.head+2*n], b.data[b.head:b.head+n])
	b.count += n
	return true
}

// AppendSilence appends n zero samples or nothing
func (b *SampleBuffer) AppendSilence(n int) bool {
	if n < 0 || !b.reserve(n) {
		return false
	}
	tail := b.data[b.head+b.count : b.head+b.count+n]
	for i := range tail {
		tail[i] = 0
	}
	b.count += n
	return true
}

// Skip drops the first n samples. n is bounded to Len().
func (b *SampleBuffer) Skip(n int) {
	if n <= 0 {
		return
	}
	if n >= b.count {
		b.Clear()
		return
	}
	b.head += n
	b.count -= n
}

// Clear empties the buffer without releasing storage
func (b *SampleBuffer) Clear() {
	b.head = 0
	b.count = 0
}

// reserve makes room for n samples at the tail, compacting if needed
func (b *SampleBuffer) reserve(n int) bool {
	if n > len(b.data)-b.count {
		return false
	}
	if b.head+b.count+n > len(b.data) {
		copy(b.data, b.data[b.head:b.head+b.count])
		b.head = 0
	}
	return true
}
