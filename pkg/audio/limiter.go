// ABOUTME: Peak limiter transfer functions
// ABOUTME: Applied per summed sample so two full-scale sources do not clip
package audio

import (
	"fmt"
	"math"
	"strings"
)

// Limiter maps a summed sample to its limited value
type Limiter func(float32) float32

// LimiterMode selects a transfer function
type LimiterMode int

const (
	LimiterSoftKnee LimiterMode = iota
	LimiterHardKnee
	LimiterBypass
)

// SoftKneeThreshold is where the soft knee starts bending
const SoftKneeThreshold = 0.75

func (m LimiterMode) String() string {
	switch m {
	case LimiterSoftKnee:
		return "soft"
	case LimiterHardKnee:
		return "hard"
	case LimiterBypass:
		return "bypass"
	default:
		return fmt.Sprintf("LimiterMode(%d)", int(m))
	}
}

// ParseLimiterMode parses "soft", "hard" or "bypass"
func ParseLimiterMode(s string) (LimiterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soft", "":
		return LimiterSoftKnee, nil
	case "hard":
		return LimiterHardKnee, nil
	case "bypass", "none":
		return LimiterBypass, nil
	default:
		return 0, fmt.Errorf("unknown limiter mode: %q (supported: soft, hard, bypass)", s)
	}
}

// Func returns the transfer function for the mode
func (m LimiterMode) Func() Limiter {
	switch m {
	case LimiterHardKnee:
		return HardKnee
	case LimiterBypass:
		return Bypass
	default:
		return SoftKnee
	}
}

// HardKnee clamps to [-1, 1]
func HardKnee(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// SoftKnee is linear below SoftKneeThreshold and bends smoothly towards full scale above it
func SoftKnee(x float32) float32 {
	a := math.Abs(float64(x))
	if a <= SoftKneeThreshold {
		return x
	}
	const t = SoftKneeThreshold
	y := t + (1-t)*math.Tanh((a-t)/(1-t))
	if x < 0 {
		return float32(-y)
	}
	return float32(y)
}

// Bypass returns its input
func Bypass(x float32) float32 { return x }
