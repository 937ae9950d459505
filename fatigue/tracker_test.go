package fatigue

import (
	"testing"
	"time"

	"drowse/landmark"
)

var t0 = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func yawnRatios() landmark.Ratios    { return landmark.Ratios{MAR: 0.9, EAR: 0.3} }
func neutralRatios() landmark.Ratios { return landmark.Ratios{MAR: 0.3, EAR: 0.3} }
func closedRatios() landmark.Ratios  { return landmark.Ratios{MAR: 0.3, EAR: 0.1} }

func TestYawnTriggersOnSecondFrame(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)

	if st := tr.Update(yawnRatios(), at(0)); st.YawnAlarm || !st.Yawning {
		t.Fatalf("first yawn frame: %+v", st)
	}
	if st := tr.Update(yawnRatios(), at(1)); !st.YawnAlarm {
		t.Fatalf("second yawn frame should trigger: %+v", st)
	}
}

func TestYawnThresholdIsStrict(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	r := landmark.Ratios{MAR: DefaultMouthThreshold, EAR: 0.3}
	for i := 0; i < 5; i++ {
		if st := tr.Update(r, at(float64(i))); st.Yawning || st.YawnAlarm {
			t.Fatalf("MAR equal to threshold counted as yawn: %+v", st)
		}
	}
	if n := len(tr.YawnLog()); n != 0 {
		t.Fatalf("log has %d entries, want 0", n)
	}
}

func TestYawnLogPruning(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	moments := []float64{0, 10, 30, 59.5, 60, 61, 95, 130, 200}
	for _, m := range moments {
		now := at(m)
		tr.Update(yawnRatios(), now)
		for _, ts := range tr.YawnLog() {
			if now.Sub(ts) > DefaultYawnWindow {
				t.Fatalf("after append at %vs, retained %v which is older than the window", m, ts.Sub(t0))
			}
		}
	}
	// only 200 itself remains; 130 is 70s older
	if log := tr.YawnLog(); len(log) != 1 || !log[0].Equal(at(200)) {
		t.Fatalf("final log = %v", log)
	}
}

func TestYawnWindowBoundaryInclusive(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	tr.Update(yawnRatios(), at(0))
	if st := tr.Update(yawnRatios(), at(60)); !st.YawnAlarm || st.YawnFrames != 2 {
		t.Fatalf("entry exactly one window old should be kept: %+v", st)
	}
	tr.Reset()
	tr.Update(yawnRatios(), at(0))
	if st := tr.Update(yawnRatios(), at(60.001)); st.YawnAlarm || st.YawnFrames != 1 {
		t.Fatalf("entry older than the window should be dropped: %+v", st)
	}
}

func TestNeutralFrameLeavesYawnLog(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	tr.Update(yawnRatios(), at(0))
	st := tr.Update(neutralRatios(), at(100))
	if st.YawnFrames != 1 || st.YawnAlarm {
		t.Fatalf("neutral frame changed the log or alarmed: %+v", st)
	}
	// not pruned because nothing was appended
	if n := len(tr.YawnLog()); n != 1 {
		t.Fatalf("log has %d entries, want 1", n)
	}
}

func TestDrowsyTriggerAtThreshold(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	need := tr.ClosedEyeThreshold()
	if need != 60 {
		t.Fatalf("ClosedEyeThreshold = %d, want 60", need)
	}
	for i := 1; i < need; i++ {
		if st := tr.Update(closedRatios(), at(float64(i)/30)); st.DrowsyAlarm {
			t.Fatalf("triggered early at closed frame %d", i)
		}
	}
	if st := tr.Update(closedRatios(), at(2)); !st.DrowsyAlarm || st.ClosedFrames != need {
		t.Fatalf("frame %d should trigger: %+v", need, st)
	}
}

func TestStatusCarriesEyeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EyeThreshold = 0.3
	st := NewTracker(cfg, 30).Update(landmark.Ratios{MAR: 0.3, EAR: 0.25}, at(0))
	if !st.EyesShut || st.EyeThreshold != 0.3 {
		t.Fatalf("status = %+v, want eyes shut against threshold 0.3", st)
	}
}

func TestDrowsyResetByOpenFrame(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	need := tr.ClosedEyeThreshold()
	for i := 0; i < need-1; i++ {
		tr.Update(closedRatios(), t0)
	}
	// EAR exactly at threshold counts as open
	st := tr.Update(landmark.Ratios{MAR: 0.3, EAR: DefaultEyeThreshold}, t0)
	if st.EyesShut || st.ClosedFrames != 0 || tr.ClosedFrames() != 0 {
		t.Fatalf("open frame did not reset the counter: %+v", st)
	}
	for i := 0; i < need-1; i++ {
		if st := tr.Update(closedRatios(), t0); st.DrowsyAlarm {
			t.Fatalf("triggered at closed frame %d after reset", i+1)
		}
	}
	if st := tr.Update(closedRatios(), t0); !st.DrowsyAlarm {
		t.Fatal("expected trigger after a full uninterrupted run")
	}
}

func TestClosedEyeFrames(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		fps  float64
		want int
	}{
		{30, 60},
		{0, 60},
		{-5, 60},
		{25, 50},
		{29.97, 59},
		{0.1, 1},
	}
	for _, tt := range tests {
		if got := cfg.ClosedEyeFrames(tt.fps); got != tt.want {
			t.Errorf("ClosedEyeFrames(%v) = %d, want %d", tt.fps, got, tt.want)
		}
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(DefaultConfig(), 30)
	tr.Update(landmark.Ratios{MAR: 0.9, EAR: 0.1}, t0)
	tr.Update(landmark.Ratios{MAR: 0.9, EAR: 0.1}, t0)
	tr.Reset()
	if len(tr.YawnLog()) != 0 || tr.ClosedFrames() != 0 {
		t.Fatalf("state after reset: log=%v closed=%d", tr.YawnLog(), tr.ClosedFrames())
	}
	if st := tr.Update(yawnRatios(), t0); st.YawnAlarm {
		t.Fatal("yawn alarm right after reset")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.MouthThreshold = 0 },
		func(c *Config) { c.YawnRepeatCount = 0 },
		func(c *Config) { c.YawnWindow = 0 },
		func(c *Config) { c.EyeThreshold = -0.1 },
		func(c *Config) { c.EyeClosedDuration = -time.Second },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, c)
		}
	}
}
