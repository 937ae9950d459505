// Package alert dispatches spoken or audible fatigue warnings. Every Sink
// blocks until playback has finished.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"drowse/beep"
)

type Kind string

const (
	KindYawn   Kind = "yawn"
	KindDrowsy Kind = "drowsy"
	KindTest   Kind = "test"
)

const (
	YawnUtterance   = "Yawning detected. Please take a break!"
	DrowsyUtterance = "Drowsiness detected. Please wake up!"
	TestUtterance   = "Voice working! This is a manual test."
)

// Utterance returns the phrase spoken for k.
func Utterance(k Kind) string {
	switch k {
	case KindYawn:
		return YawnUtterance
	case KindDrowsy:
		return DrowsyUtterance
	}
	return TestUtterance
}

type Sink interface {
	Alert(ctx context.Context, k Kind, utterance string) error
	Name() string
}

// Tone plays the beep pattern of each kind and ignores the utterance.
type Tone struct{}

func (Tone) Name() string { return "tone" }

func (Tone) Alert(ctx context.Context, k Kind, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch k {
	case KindYawn:
		return beep.Play(beep.PatternYawn)
	case KindDrowsy:
		return beep.Play(beep.PatternDrowsy)
	}
	return beep.Play(beep.PatternTest)
}

// Chain tries each sink in order until one succeeds.
type Chain []Sink

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, ">")
}

func (c Chain) Alert(ctx context.Context, k Kind, utterance string) error {
	var errs []error
	for _, s := range c {
		err := s.Alert(ctx, k, utterance)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Name() string { return "discard" }

func (Discard) Alert(context.Context, Kind, string) error { return nil }

// Dispatched is one alert seen by a Recorder.
type Dispatched struct {
	Kind      Kind
	Utterance string
}

// Recorder keeps every alert it receives. Optional Err is returned from
// every call after recording.
type Recorder struct {
	Err error

	mu   sync.Mutex
	sent []Dispatched
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Alert(_ context.Context, k Kind, utterance string) error {
	r.mu.Lock()
	r.sent = append(r.sent, Dispatched{Kind: k, Utterance: utterance})
	r.mu.Unlock()
	return r.Err
}

func (r *Recorder) Alerts() []Dispatched {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Dispatched(nil), r.sent...)
}

func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.sent {
		if d.Kind == k {
			n++
		}
	}
	return n
}
