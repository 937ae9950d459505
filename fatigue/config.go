package fatigue

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultMouthThreshold    = 0.8
	DefaultYawnRepeatCount   = 2
	DefaultYawnWindow        = 60 * time.Second
	DefaultEyeThreshold      = 0.2
	DefaultEyeClosedDuration = 2 * time.Second
	DefaultFPS               = 30.0
)

var ErrConfig = errors.New("fatigue: invalid config")

// Config holds the trigger parameters of both events.
type Config struct {
	MouthThreshold    float64       // MAR above this counts as a yawn frame
	YawnRepeatCount   int           // yawn frames inside YawnWindow needed to alert
	YawnWindow        time.Duration // sliding window for yawn frames
	EyeThreshold      float64       // EAR below this counts as a closed-eye frame
	EyeClosedDuration time.Duration // uninterrupted closure needed to alert
}

func DefaultConfig() Config {
	return Config{
		MouthThreshold:    DefaultMouthThreshold,
		YawnRepeatCount:   DefaultYawnRepeatCount,
		YawnWindow:        DefaultYawnWindow,
		EyeThreshold:      DefaultEyeThreshold,
		EyeClosedDuration: DefaultEyeClosedDuration,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.MouthThreshold > 0):
		return fmt.Errorf("mouth threshold %v must be positive: %w", c.MouthThreshold, ErrConfig)
	case c.YawnRepeatCount < 1:
		return fmt.Errorf("yawn repeat count %d must be at least 1: %w", c.YawnRepeatCount, ErrConfig)
	case c.YawnWindow <= 0:
		return fmt.Errorf("yawn window %v must be positive: %w", c.YawnWindow, ErrConfig)
	case !(c.EyeThreshold > 0):
		return fmt.Errorf("eye threshold %v must be positive: %w", c.EyeThreshold, ErrConfig)
	case c.EyeClosedDuration <= 0:
		return fmt.Errorf("eye closed duration %v must be positive: %w", c.EyeClosedDuration, ErrConfig)
	}
	return nil
}

// ClosedEyeFrames converts EyeClosedDuration into a frame count at the given
// frame rate. Unknown rates (zero, negative, NaN) fall back to DefaultFPS.
func (c Config) ClosedEyeFrames(fps float64) int {
	if !(fps > 0) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	n := int(fps * c.EyeClosedDuration.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}
