package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"drowse/alert"
	"drowse/beep"
	"drowse/config"
	"drowse/doctor"
	"drowse/fatigue"
	"drowse/log"
	"drowse/shutdown"
	"drowse/source"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "YAML config file (default: $DROWSE_CONFIG)")
	envFlag := flag.String("env", ".env", "dotenv file with DROWSE_* variables")
	fileFlag := flag.String("file", "", "Replay a recorded landmark file instead of reading stdin")
	realtimeFlag := flag.Bool("realtime", true, "Pace -file replay at the recorded frame rate")
	listenFlag := flag.String("listen", "", "Accept landmarks from a websocket sidecar on this address (e.g. :8765)")
	fpsFlag := flag.Float64("fps", 0, "Frame rate override (0 = ask the source, default 30)")
	marFlag := flag.Float64("mar", fatigue.DefaultMouthThreshold, "Mouth aspect ratio above which a frame counts as a yawn")
	earFlag := flag.Float64("ear", fatigue.DefaultEyeThreshold, "Eye aspect ratio below which eyes count as closed")
	yawnsFlag := flag.Int("yawns", fatigue.DefaultYawnRepeatCount, "Yawn frames inside the window that raise an alert")
	windowFlag := flag.Duration("window", fatigue.DefaultYawnWindow, "Yawn window")
	closedFlag := flag.Duration("closed", fatigue.DefaultEyeClosedDuration, "Eye closure that raises a drowsiness alert")
	sayFlag := flag.String("say", "", "Speech command line (default: say, espeak-ng, espeak or spd-say)")
	toneFlag := flag.Bool("tone", true, "Fall back to a beep pattern when speech fails")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	voiceTestFlag := flag.Bool("voicetest", false, "Speak the test alert and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless replay of a landmark file)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("drowse %s\n", version)
		return 0
	}

	if err := config.LoadEnvFile(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfig)
	}
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Flags set on the command line win over the environment and the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fps":
			settings.FPS = *fpsFlag
		case "mar":
			settings.Detector.MouthThreshold = *marFlag
		case "ear":
			settings.Detector.EyeThreshold = *earFlag
		case "yawns":
			settings.Detector.YawnRepeatCount = *yawnsFlag
		case "window":
			settings.Detector.YawnWindow = *windowFlag
		case "closed":
			settings.Detector.EyeClosedDuration = *closedFlag
		case "say":
			settings.Say = *sayFlag
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: drowse -test <frames.jsonl>")
			return 1
		}
		return runTestMode(args[0], settings)
	}

	go beep.Init()
	sink := alertSink(settings.Say, *toneFlag)

	if *doctorFlag {
		return doctor.Run(doctor.Options{
			LogDir:      log.Dir(),
			Sink:        sink,
			File:        flag.Arg(0),
			Mapping:     settings.Mapping,
			Interactive: doctor.Interactive(),
		})
	}

	if *voiceTestFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := sink.Alert(ctx, alert.KindTest, alert.TestUtterance); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("%s via %s\n", alert.TestUtterance, sink.Name())
		return 0
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	sigCtx, stop := shutdown.Context(context.Background())
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	src, err := openSource(*fileFlag, *realtimeFlag, *listenFlag)
	if err != nil {
		log.Errorf("source open error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v: %v\n", errSource, err)
		return 1
	}
	defer src.Close()

	var events EventSink = printSink{w: os.Stdout}
	var tuiProgram *tea.Program
	tuiDone := make(chan struct{})
	if *tuiFlag {
		// The TUI must not read keys from stdin when landmarks arrive there.
		tuiProgram = NewTUIProgram(src.Name() != "stdin")
		events = tuiSink{p: tuiProgram}
		go func() {
			defer close(tuiDone)
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			cancel()
		}()
	} else {
		close(tuiDone)
	}
	quitTUI := func() {
		if tuiProgram != nil {
			tuiProgram.Quit()
		}
		<-tuiDone
	}

	events.SourceLine("source: " + src.Name())
	if err := src.Start(ctx); err != nil {
		quitTUI()
		if ctx.Err() != nil {
			return 0
		}
		log.Errorf("source start error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v: %v\n", errSource, err)
		return 1
	}

	m, err := NewMonitor(MonitorConfig{
		Source:   src,
		Mapping:  settings.Mapping,
		Detector: settings.Detector,
		FPS:      settings.FPS,
		Alerts:   sink,
		Events:   events,
	})
	if err != nil {
		quitTUI()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	session := m.Session()
	log.SessionStart(session)
	events.ConfigLine(configLine(session))

	runErr := m.Run(ctx)
	quitTUI()
	if runErr != nil {
		log.Errorf("%v", runErr)
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

// alertSink prefers speech and falls back to tones.
func alertSink(say string, tone bool) alert.Sink {
	var chain alert.Chain
	if sp, err := alert.NewSpeech(say); err == nil {
		chain = append(chain, sp)
	} else {
		log.Warnf("speech unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if tone {
		chain = append(chain, alert.Tone{})
	}
	if len(chain) == 0 {
		return alert.Discard{}
	}
	return chain
}

func openSource(file string, realtime bool, listen string) (source.Source, error) {
	switch {
	case listen != "":
		ws := source.NewWebsocket(listen)
		if err := ws.Listen(); err != nil {
			return nil, err
		}
		return ws, nil
	case file != "":
		return source.NewFile(file, realtime)
	}
	return source.NewReader(os.Stdin), nil
}

func configLine(s log.Session) string {
	return fmt.Sprintf("yawn: MAR>%.2f x%d in %s | eyes: EAR<%.2f for %d frames @ %.0ffps",
		s.MouthThreshold, s.YawnRepeatCount, s.YawnWindow, s.EyeThreshold, s.ClosedEyeFrames, fpsOrDefault(s.FPS))
}

func fpsOrDefault(fps float64) float64 {
	if fps > 0 {
		return fps
	}
	return fatigue.DefaultFPS
}
