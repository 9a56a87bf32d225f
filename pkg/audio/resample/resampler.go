// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved float32 chunks, carrying interpolation state across calls
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64   // read position relative to the first frame of the next chunk
	lastFrame  []float32 // last input frame of the previous chunk
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]float32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts interleaved input at inputRate and appends interleaved output at
// outputRate to dst. Fractional positions are carried to the next call so chunk
// boundaries do not click.
func (r *Resampler) Resample(dst, input []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}
	if r.Passthrough() {
		return append(dst, input[:inputFrames*r.channels]...)
	}

	// frame -1 is the previous chunk's last frame
	frameAt := func(idx, ch int) float32 {
		if idx < 0 {
			return r.lastFrame[ch]
		}
		return input[idx*r.channels+ch]
	}

	if !r.primed {
		// No history yet: start on the first frame of this chunk
		r.position = 0
		r.primed = true
	}

	for {
		inputPos := r.position
		idx := int(inputPos)
		if inputPos < 0 {
			idx = -1
		}

		// Need frames idx and idx+1
		if idx+1 >= inputFrames {
			break
		}

		frac := float32(inputPos - float64(idx))

		for ch := 0; ch < r.channels; ch++ {
			s1 := frameAt(idx, ch)
			s2 := frameAt(idx+1, ch)
			dst = append(dst, s1*(1-frac)+s2*frac)
		}

		r.position += r.ratio
	}

	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])

	// Rebase so the next chunk's first frame is index 0; last frame becomes -1
	r.position -= float64(inputFrames)

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputFramesFor estimates how many output frames inputFrames produce
func (r *Resampler) OutputFramesFor(inputFrames int) int {
	return int(float64(inputFrames) / r.ratio)
}

// InputFramesFor estimates how many input frames are needed for outputFrames
func (r *Resampler) InputFramesFor(outputFrames int) int {
	return int(float64(outputFrames) * r.ratio)
}
