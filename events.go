package main

import (
	"fmt"
	"io"

	"drowse/alert"
	"drowse/fatigue"
)

// EventSink abstracts the display layer so both the Bubble Tea TUI and the
// headless modes receive the same per-frame events.
type EventSink interface {
	FrameUpdate(st fatigue.Status)
	FaceLost(frames int)
	Alert(kind alert.Kind, utterance string)
	SourceLine(text string)
	ConfigLine(text string)
}

// printSink writes alerts and status lines to w. Per-frame updates are
// dropped; the diagnostics log already carries periodic stats.
type printSink struct {
	w io.Writer
}

func (p printSink) FrameUpdate(fatigue.Status) {}

func (p printSink) FaceLost(frames int) {
	if frames == 1 {
		fmt.Fprintln(p.w, "face lost")
	}
}

func (p printSink) Alert(kind alert.Kind, utterance string) {
	fmt.Fprintf(p.w, "ALERT %s: %s\n", kind, utterance)
}

func (p printSink) SourceLine(text string) { fmt.Fprintln(p.w, text) }

func (p printSink) ConfigLine(text string) { fmt.Fprintln(p.w, text) }

type nopSink struct{}

func (nopSink) FrameUpdate(fatigue.Status) {}
func (nopSink) FaceLost(int)               {}
func (nopSink) Alert(alert.Kind, string)   {}
func (nopSink) SourceLine(string)          {}
func (nopSink) ConfigLine(string)          {}
