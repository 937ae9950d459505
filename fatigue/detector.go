package fatigue

import "drowse/landmark"

type Event int

const (
	EventNone   Event = iota
	EventYawn         // repeated yawning inside the window
	EventDrowsy       // eyes closed for the required duration
)

func (e Event) String() string {
	switch e {
	case EventYawn:
		return "yawn"
	case EventDrowsy:
		return "drowsy"
	}
	return "none"
}

// Detector combines a Tracker with one Latch per event kind and stamps
// frames with its Clock.
type Detector struct {
	clock   Clock
	tracker *Tracker
	yawn    Latch
	drowsy  Latch
}

func NewDetector(cfg Config, fps float64, clock Clock) *Detector {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Detector{clock: clock, tracker: NewTracker(cfg, fps)}
}

func (d *Detector) Tracker() *Tracker { return d.tracker }

// Process runs one frame through the tracker and the latches. The returned
// events are the alerts to dispatch for this frame, yawn first.
func (d *Detector) Process(r landmark.Ratios) (Status, []Event) {
	st := d.tracker.Update(r, d.clock.Now())
	var events []Event
	if d.yawn.Observe(st.Yawning, st.YawnAlarm) {
		events = append(events, EventYawn)
	}
	if d.drowsy.Observe(st.EyesShut, st.DrowsyAlarm) {
		events = append(events, EventDrowsy)
	}
	return st, events
}

// Latched reports whether an alert has already fired for the current
// episode of the given kind.
func (d *Detector) Latched(e Event) bool {
	switch e {
	case EventYawn:
		return d.yawn.Set()
	case EventDrowsy:
		return d.drowsy.Set()
	}
	return false
}

func (d *Detector) Reset() {
	d.tracker.Reset()
	d.yawn.Reset()
	d.drowsy.Reset()
}
