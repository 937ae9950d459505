// Package fatigue decides, frame by frame, when yawning or eye closure has
// gone on long enough to warn the user, and makes sure each episode warns once.
package fatigue

import (
	"time"

	"drowse/landmark"
)

// Status is the tracker's view of one processed frame.
type Status struct {
	Ratios landmark.Ratios

	Yawning     bool // MAR above threshold this frame
	EyesShut    bool // EAR below threshold this frame
	YawnAlarm   bool // enough yawn frames inside the window
	DrowsyAlarm bool // eyes shut for the required number of frames

	YawnFrames   int // yawn frames currently inside the window
	ClosedFrames int // consecutive closed-eye frames
	ClosedNeeded int

	EyeThreshold float64 // EAR below which the eyes count as shut
}

// Tracker holds the yawn timestamp log and the closed-eye frame counter.
// It is not safe for concurrent use; the frame loop owns it.
type Tracker struct {
	cfg          Config
	closedNeeded int

	yawns  []time.Time
	closed int
}

func NewTracker(cfg Config, fps float64) *Tracker {
	return &Tracker{
		cfg:          cfg,
		closedNeeded: cfg.ClosedEyeFrames(fps),
	}
}

func (t *Tracker) Config() Config { return t.cfg }

func (t *Tracker) ClosedEyeThreshold() int { return t.closedNeeded }

// Update feeds one frame's ratios observed at now.
func (t *Tracker) Update(r landmark.Ratios, now time.Time) Status {
	st := Status{Ratios: r, ClosedNeeded: t.closedNeeded, EyeThreshold: t.cfg.EyeThreshold}

	if r.MAR > t.cfg.MouthThreshold {
		st.Yawning = true
		t.yawns = append(t.yawns, now)
		t.prune(now)
		st.YawnAlarm = len(t.yawns) >= t.cfg.YawnRepeatCount
	}
	st.YawnFrames = len(t.yawns)

	if r.EAR < t.cfg.EyeThreshold {
		st.EyesShut = true
		t.closed++
		st.DrowsyAlarm = t.closed >= t.closedNeeded
	} else {
		t.closed = 0
	}
	st.ClosedFrames = t.closed

	return st
}

// prune drops yawn timestamps more than one window older than now.
func (t *Tracker) prune(now time.Time) {
	keep := t.yawns[:0]
	for _, ts := range t.yawns {
		if now.Sub(ts) <= t.cfg.YawnWindow {
			keep = append(keep, ts)
		}
	}
	clear(t.yawns[len(keep):])
	t.yawns = keep
}

// YawnLog returns a copy of the retained yawn timestamps, oldest first.
func (t *Tracker) YawnLog() []time.Time {
	return append([]time.Time(nil), t.yawns...)
}

func (t *Tracker) ClosedFrames() int { return t.closed }

func (t *Tracker) Reset() {
	t.yawns = t.yawns[:0]
	t.closed = 0
}
