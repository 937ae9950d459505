package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"drowse/alert"
	"drowse/fatigue"
	"drowse/landmark"
	"drowse/log"
	"drowse/source"
)

// statsEvery is how many frames pass between frame_stats log lines.
const statsEvery = 300

var errSource = errors.New("unable to access the landmark source")

type MonitorConfig struct {
	Source   source.Source
	Mapping  landmark.Mapping
	Detector fatigue.Config
	FPS      float64 // overrides Source.FPS() when > 0
	Alerts   alert.Sink
	Events   EventSink

	// FrameClock stamps frames with their own timestamps (or seq/fps when
	// the producer sent none) instead of wall time. Used for replays.
	FrameClock bool
	Clock      fatigue.Clock
}

// Monitor drives frames from a source through the detector and dispatches
// alerts synchronously: the next frame is not read until the alert finishes.
type Monitor struct {
	src      source.Source
	mapping  landmark.Mapping
	detector *fatigue.Detector
	alerts   alert.Sink
	events   EventSink
	fps      float64

	frameClock *fatigue.ManualClock
	epoch      time.Time

	stats   log.Stats
	lostRun int
}

// NewMonitor builds a monitor for a source that has already been started,
// so its frame rate is known.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.Detector.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Mapping.Validate(); err != nil {
		return nil, err
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = cfg.Source.FPS()
	}
	m := &Monitor{
		src:     cfg.Source,
		mapping: cfg.Mapping,
		alerts:  cfg.Alerts,
		events:  cfg.Events,
		fps:     fps,
	}
	if m.alerts == nil {
		m.alerts = alert.Discard{}
	}
	if m.events == nil {
		m.events = nopSink{}
	}
	clock := cfg.Clock
	if cfg.FrameClock {
		m.epoch = time.Unix(0, 0)
		m.frameClock = fatigue.NewManualClock(m.epoch)
		clock = m.frameClock
	}
	m.detector = fatigue.NewDetector(cfg.Detector, fps, clock)
	return m, nil
}

func (m *Monitor) Detector() *fatigue.Detector { return m.detector }

func (m *Monitor) Stats() log.Stats { return m.stats }

// Session describes the monitor for the session_start log line.
func (m *Monitor) Session() log.Session {
	cfg := m.detector.Tracker().Config()
	return log.Session{
		Source:          m.src.Name(),
		FPS:             m.fps,
		ClosedEyeFrames: m.detector.Tracker().ClosedEyeThreshold(),
		MouthThreshold:  cfg.MouthThreshold,
		YawnRepeatCount: cfg.YawnRepeatCount,
		YawnWindow:      cfg.YawnWindow,
		EyeThreshold:    cfg.EyeThreshold,
		Mapping:         m.mapping.Name,
	}
}

// Run processes frames until the source ends or ctx is cancelled, both of
// which return nil. Any other source failure is returned.
func (m *Monitor) Run(ctx context.Context) error {
	defer func() { log.SessionEnd(m.stats) }()
	for {
		f, err := m.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %w", errSource, err)
		}
		if err := m.Step(ctx, f); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Step processes a single frame and dispatches any alerts it raises.
func (m *Monitor) Step(ctx context.Context, f source.Frame) error {
	m.stats.Frames++
	defer func() {
		if m.stats.Frames%statsEvery == 0 {
			log.FrameStats(m.stats)
		}
	}()

	if len(f.Faces) == 0 {
		m.stats.NoFace++
		m.lostRun++
		if m.lostRun == 1 {
			log.Info("face_lost")
		}
		m.events.FaceLost(m.lostRun)
		return nil
	}
	if m.lostRun > 0 {
		log.Infof("face_found after %d frames", m.lostRun)
		m.lostRun = 0
	}

	face, err := m.mapping.Extract(f.Faces[0], f.Width, f.Height)
	if err != nil {
		return fmt.Errorf("%w: frame %d: %w", errSource, f.Seq, err)
	}
	if m.frameClock != nil {
		m.frameClock.Set(m.frameTime(f))
	}

	st, events := m.detector.Process(landmark.Measure(face))
	m.stats.MAR = st.Ratios.MAR
	m.stats.EAR = st.Ratios.EAR
	m.stats.YawnFrames = st.YawnFrames
	m.stats.ClosedRun = st.ClosedFrames
	m.events.FrameUpdate(st)

	for _, ev := range events {
		m.dispatch(ctx, ev)
	}
	return nil
}

// frameTime prefers the producer's timestamp, then its sequence number, then
// the count of frames seen so far.
func (m *Monitor) frameTime(f source.Frame) time.Time {
	if !f.Timestamp.IsZero() {
		return f.Timestamp
	}
	fps := m.fps
	if fps <= 0 {
		fps = fatigue.DefaultFPS
	}
	n := f.Seq
	if n == 0 {
		n = int64(m.stats.Frames)
	}
	return m.epoch.Add(time.Duration(float64(n) / fps * float64(time.Second)))
}

func (m *Monitor) dispatch(ctx context.Context, ev fatigue.Event) {
	var kind alert.Kind
	switch ev {
	case fatigue.EventYawn:
		kind = alert.KindYawn
		m.stats.YawnAlerts++
		log.Info("Yawn alert triggered!")
	case fatigue.EventDrowsy:
		kind = alert.KindDrowsy
		m.stats.DrowsyAlerts++
		log.Info("Drowsiness alert triggered!")
	default:
		return
	}
	utterance := alert.Utterance(kind)
	m.events.Alert(kind, utterance)
	log.Alert(string(kind), utterance, m.stats, time.Now())
	if err := m.alerts.Alert(ctx, kind, utterance); err != nil && ctx.Err() == nil {
		log.AlertFailed(string(kind), err)
	}
}
