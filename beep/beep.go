// Package beep synthesizes the alert tones and plays them to completion.
package beep

import (
	"errors"
	"math"
)

var disabled bool

func Disable() { disabled = true }

var ErrUnavailable = errors.New("beep: audio playback unavailable")

type Pattern int

const (
	PatternYawn   Pattern = iota // two medium chimes
	PatternDrowsy                // three loud high beeps
	PatternTest                  // single tick
)

const (
	sampleRate = 44100

	yawnFreq   = 660
	yawnVolume = 0.5
	yawnDecay  = 8

	drowsyFreq   = 1400
	drowsyVolume = 0.8
	drowsyDecay  = 4

	testFreq   = 1200
	testVolume = 0.5
	testDecay  = 60
)

// samples returns interleaved stereo int16 samples for p.
func samples(p Pattern) []int16 {
	switch p {
	case PatternYawn:
		return repeatTone(generateTick(sampleRate, yawnFreq, 0.35, yawnVolume, yawnDecay), 2, 0.15)
	case PatternDrowsy:
		return repeatTone(generateTick(sampleRate, drowsyFreq, 0.25, drowsyVolume, drowsyDecay), 3, 0.1)
	default:
		return generateTick(sampleRate, testFreq, 0.2, testVolume, testDecay)
	}
}

func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	// Generate stereo (interleaved L/R) to match output sink format
	out := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

func repeatTone(tone []int16, times int, gapDur float64) []int16 {
	gap := make([]int16, int(float64(sampleRate)*gapDur)*2)
	out := make([]int16, 0, times*(len(tone)+len(gap)))
	for i := 0; i < times; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, tone...)
	}
	return out
}
