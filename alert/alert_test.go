package alert

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

type failSink struct {
	name  string
	calls int
}

func (f *failSink) Name() string { return f.name }

func (f *failSink) Alert(context.Context, Kind, string) error {
	f.calls++
	return errors.New(f.name + " broken")
}

func TestUtteranceForKind(t *testing.T) {
	tests := map[Kind]string{
		KindYawn:   "Yawning detected. Please take a break!",
		KindDrowsy: "Drowsiness detected. Please wake up!",
		KindTest:   "Voice working! This is a manual test.",
	}
	for k, want := range tests {
		if got := Utterance(k); got != want {
			t.Errorf("Utterance(%s) = %q, want %q", k, got, want)
		}
	}
}

func TestChainFallsThrough(t *testing.T) {
	first := &failSink{name: "first"}
	rec := &Recorder{}
	c := Chain{first, rec}

	if err := c.Alert(context.Background(), KindYawn, YawnUtterance); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if first.calls != 1 || rec.Count(KindYawn) != 1 {
		t.Fatalf("calls: first=%d recorder=%d", first.calls, rec.Count(KindYawn))
	}
	if got := c.Name(); got != "first>recorder" {
		t.Errorf("Name = %q", got)
	}
}

func TestChainAllFail(t *testing.T) {
	c := Chain{&failSink{name: "a"}, &failSink{name: "b"}}
	err := c.Alert(context.Background(), KindDrowsy, DrowsyUtterance)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"a broken", "b broken"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	second := &failSink{name: "second"}
	c := Chain{&failSink{name: "first"}, second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Alert(ctx, KindYawn, ""); err == nil {
		t.Fatal("expected error")
	}
	if second.calls != 0 {
		t.Fatal("chain kept going after cancellation")
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{Err: errors.New("muted")}
	if err := r.Alert(context.Background(), KindDrowsy, DrowsyUtterance); err == nil {
		t.Fatal("expected configured error")
	}
	got := r.Alerts()
	if len(got) != 1 || got[0] != (Dispatched{Kind: KindDrowsy, Utterance: DrowsyUtterance}) {
		t.Fatalf("Alerts = %+v", got)
	}
}

func TestSpeechCustomCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo/false from a POSIX userland")
	}
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not on PATH")
	}
	s, err := NewSpeech("echo -n")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Alert(context.Background(), KindTest, TestUtterance); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if s.Name() != "speech:echo" {
		t.Errorf("Name = %q", s.Name())
	}

	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not on PATH")
	}
	bad, err := NewSpeech("false")
	if err != nil {
		t.Fatal(err)
	}
	if err := bad.Alert(context.Background(), KindTest, TestUtterance); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestSpeechMissingCommand(t *testing.T) {
	if _, err := NewSpeech("definitely-not-a-tts-binary"); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
}
