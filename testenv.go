package main

import (
	"context"
	"fmt"
	"os"

	"drowse/alert"
	"drowse/beep"
	"drowse/config"
	"drowse/log"
	"drowse/shutdown"
	"drowse/source"
)

// runTestMode replays a recorded landmark file as fast as it can be read,
// timing the detector from the frames themselves, and prints each alert.
func runTestMode(path string, s config.Settings) int {
	beep.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	src, err := source.NewFile(path, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v: %v\n", errSource, err)
		return 1
	}
	defer src.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if err := src.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v: %v\n", errSource, err)
		return 1
	}

	m, err := NewMonitor(MonitorConfig{
		Source:     src,
		Mapping:    s.Mapping,
		Detector:   s.Detector,
		FPS:        s.FPS,
		Alerts:     alert.Tone{},
		Events:     printSink{w: os.Stdout},
		FrameClock: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.SessionStart(m.Session())

	runErr := m.Run(ctx)
	st := m.Stats()
	fmt.Printf("session=%s frames=%d no_face=%d yawn_alerts=%d drowsy_alerts=%d\n",
		log.SessionID(), st.Frames, st.NoFace, st.YawnAlerts, st.DrowsyAlerts)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}
