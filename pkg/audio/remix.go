// ABOUTME: Channel down-mix routines
// ABOUTME: Converts mono and 5.1 input to the stereo layout the mixer works with
package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChannels is returned for layouts other than mono, stereo and 5.1
var ErrUnsupportedChannels = errors.New("unsupported channel count")

// 5.1 down-mix coefficients (ITU-R BS.775 style, LFE dropped).
// Input order is L, R, C, LFE, Ls, Rs.
const (
	centerMixLevel   = 0.70710678
	surroundMixLevel = 0.70710678
)

// MonoToStereo duplicates each mono sample into left and right and appends the result to dst
func MonoToStereo(dst, src []float32) []float32 {
	for _, s := range src {
		dst = append(dst, s, s)
	}
	return dst
}

// FiveOneToStereo folds interleaved 5.1 frames down to stereo and appends them to dst.
// A trailing partial frame is ignored.
func FiveOneToStereo(dst, src []float32) []float32 {
	frames := len(src) / 6
	for i := 0; i < frames; i++ {
		f := src[i*6 : i*6+6]
		left := f[0] + centerMixLevel*f[2] + surroundMixLevel*f[4]
		right := f[1] + centerMixLevel*f[2] + surroundMixLevel*f[5]
		dst = append(dst, left, right)
	}
	return dst
}

// StereoPassthrough appends src unchanged, dropping a trailing odd sample
func StereoPassthrough(dst, src []float32) []float32 {
	return append(dst, src[:len(src)&^1]...)
}

// RemixToStereo converts src with the given channel count to stereo, appending to dst
func RemixToStereo(dst, src []float32, channels int) ([]float32, error) {
	switch channels {
	case 1:
		return MonoToStereo(dst, src), nil
	case 2:
		return StereoPassthrough(dst, src), nil
	case 6:
		return FiveOneToStereo(dst, src), nil
	default:
		return dst, fmt.Errorf("%w: %d", ErrUnsupportedChannels, channels)
	}
}

// StereoLength returns how many stereo samples src produces for the given channel count
func StereoLength(samples, channels int) int {
	if channels <= 0 {
		return 0
	}
	return (samples / channels) * StereoChannels
}
