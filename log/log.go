package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	AlertsFile      = "alerts_log.txt"
	EnvLogPath      = "DROWSE_LOG_PATH"
)

var (
	diagLog    zerolog.Logger
	diagFile   *lumberjack.Logger
	alertsFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
	session    string
)

// Session describes the detector setup logged at startup.
type Session struct {
	Source          string
	FPS             float64
	ClosedEyeFrames int
	MouthThreshold  float64
	YawnRepeatCount int
	YawnWindow      time.Duration
	EyeThreshold    float64
	Mapping         string
}

// Stats are the frame counters reported periodically and at exit.
type Stats struct {
	Frames       int
	NoFace       int
	YawnFrames   int
	ClosedRun    int
	YawnAlerts   int
	DrowsyAlerts int
	MAR          float64
	EAR          float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: DROWSE_LOG_PATH environment variable
	if envPath := os.Getenv(EnvLogPath); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	alertsFile, err = os.OpenFile(filepath.Join(dir, AlertsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	// rotated by size; frame_stats adds up at 30fps
	diagFile = &lumberjack.Logger{
		Filename:   filepath.Join(dir, DiagnosticsFile),
		LocalTime:  true,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	session = uuid.NewString()

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Str("session", session).Logger()
	diagLog.Info().Str("dir", dir).Msg("log_open")

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if alertsFile != nil {
		alertsFile.Close()
		alertsFile = nil
	}
	logReady = false
}

// SessionID identifies this process's log lines; empty before Init.
func SessionID() string {
	logMu.Lock()
	defer logMu.Unlock()
	return session
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(s Session) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("source", s.Source).
		Float64("fps", s.FPS).
		Int("closed_eye_frames", s.ClosedEyeFrames).
		Float64("mouth_threshold", s.MouthThreshold).
		Int("yawn_repeat", s.YawnRepeatCount).
		Dur("yawn_window", s.YawnWindow).
		Float64("eye_threshold", s.EyeThreshold).
		Str("mapping", s.Mapping).
		Msg("session_start")
}

// Alert records a dispatched alert in the diagnostics log and appends a line
// to the alert history file.
func Alert(kind, utterance string, st Stats, at time.Time) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("kind", kind).
		Int("frame", st.Frames).
		Float64("mar", st.MAR).
		Float64("ear", st.EAR).
		Int("yawn_frames", st.YawnFrames).
		Int("closed_run", st.ClosedRun).
		Msg(kind + "_alert")

	logMu.Lock()
	defer logMu.Unlock()
	if alertsFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", at.Format("2006-01-02 15:04:05"), pid, kind, utterance)
	alertsFile.WriteString(line)
}

func AlertFailed(kind string, err error) {
	if !logReady {
		return
	}
	diagLog.Error().Str("kind", kind).Err(err).Msg("alert_failed")
}

func FrameStats(st Stats) {
	if !logReady {
		return
	}
	statsEvent(diagLog.Info(), st).Msg("frame_stats")
}

func SessionEnd(st Stats) {
	if !logReady {
		return
	}
	statsEvent(diagLog.Info(), st).Msg("session_end")
}

func statsEvent(ev *zerolog.Event, st Stats) *zerolog.Event {
	return ev.
		Int("frames", st.Frames).
		Int("no_face", st.NoFace).
		Int("yawn_alerts", st.YawnAlerts).
		Int("drowsy_alerts", st.DrowsyAlerts).
		Float64("mar", st.MAR).
		Float64("ear", st.EAR)
}
