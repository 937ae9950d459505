// Package config loads detector settings from an optional YAML file and
// DROWSE_* environment variables (a .env file in the working directory is
// read first). Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"drowse/fatigue"
	"drowse/landmark"
)

const (
	EnvConfig         = "DROWSE_CONFIG"
	EnvMouthThreshold = "DROWSE_MOUTH_THRESHOLD"
	EnvYawnRepeat     = "DROWSE_YAWN_REPEAT"
	EnvYawnWindow     = "DROWSE_YAWN_WINDOW"
	EnvEyeThreshold   = "DROWSE_EYE_THRESHOLD"
	EnvEyeClosed      = "DROWSE_EYE_CLOSED"
	EnvFPS            = "DROWSE_FPS"
	EnvSay            = "DROWSE_SAY"
)

type Settings struct {
	Detector fatigue.Config
	FPS      float64 // overrides the source frame rate when > 0
	Say      string  // custom speech command line
	Mapping  landmark.Mapping
}

func Defaults() Settings {
	return Settings{
		Detector: fatigue.DefaultConfig(),
		Mapping:  landmark.MediaPipe,
	}
}

type fileMapping struct {
	Name     string `yaml:"name"`
	Mouth    []int  `yaml:"mouth"`
	LeftEye  []int  `yaml:"left_eye"`
	RightEye []int  `yaml:"right_eye"`
}

type file struct {
	MouthThreshold  *float64       `yaml:"mouth_threshold"`
	YawnRepeatCount *int           `yaml:"yawn_repeat_count"`
	YawnWindow      *time.Duration `yaml:"yawn_window"`
	EyeThreshold    *float64       `yaml:"eye_threshold"`
	EyeClosed       *time.Duration `yaml:"eye_closed"`
	FPS             *float64       `yaml:"fps"`
	Say             *string        `yaml:"say"`
	Mapping         *fileMapping   `yaml:"mapping"`
}

// LoadEnvFile reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds settings from defaults, then the YAML file at path (skipped
// when empty), then the environment.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		if err := s.applyFile(path); err != nil {
			return s, err
		}
	}
	if err := s.applyEnv(); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s *Settings) Validate() error {
	if err := s.Detector.Validate(); err != nil {
		return err
	}
	if s.FPS < 0 {
		return fmt.Errorf("fps %v must not be negative: %w", s.FPS, fatigue.ErrConfig)
	}
	return s.Mapping.Validate()
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if f.MouthThreshold != nil {
		s.Detector.MouthThreshold = *f.MouthThreshold
	}
	if f.YawnRepeatCount != nil {
		s.Detector.YawnRepeatCount = *f.YawnRepeatCount
	}
	if f.YawnWindow != nil {
		s.Detector.YawnWindow = *f.YawnWindow
	}
	if f.EyeThreshold != nil {
		s.Detector.EyeThreshold = *f.EyeThreshold
	}
	if f.EyeClosed != nil {
		s.Detector.EyeClosedDuration = *f.EyeClosed
	}
	if f.FPS != nil {
		s.FPS = *f.FPS
	}
	if f.Say != nil {
		s.Say = *f.Say
	}
	if f.Mapping != nil {
		m, err := f.Mapping.toMapping()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.Mapping = m
	}
	return nil
}

func (fm *fileMapping) toMapping() (landmark.Mapping, error) {
	m := landmark.Mapping{Name: fm.Name}
	if m.Name == "" {
		m.Name = "custom"
	}
	if len(fm.Mouth) != landmark.MouthPoints {
		return m, fmt.Errorf("mapping mouth: got %d indices, want %d: %w", len(fm.Mouth), landmark.MouthPoints, landmark.ErrSetSize)
	}
	if len(fm.LeftEye) != landmark.EyePoints || len(fm.RightEye) != landmark.EyePoints {
		return m, fmt.Errorf("mapping eyes: got %d/%d indices, want %d: %w", len(fm.LeftEye), len(fm.RightEye), landmark.EyePoints, landmark.ErrSetSize)
	}
	copy(m.Mouth[:], fm.Mouth)
	copy(m.LeftEye[:], fm.LeftEye)
	copy(m.RightEye[:], fm.RightEye)
	return m, nil
}

func (s *Settings) applyEnv() error {
	var err error
	envFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = f
		}
	}
	envDur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = d
		}
	}

	envFloat(EnvMouthThreshold, &s.Detector.MouthThreshold)
	envDur(EnvYawnWindow, &s.Detector.YawnWindow)
	envFloat(EnvEyeThreshold, &s.Detector.EyeThreshold)
	envDur(EnvEyeClosed, &s.Detector.EyeClosedDuration)
	envFloat(EnvFPS, &s.FPS)
	if v := os.Getenv(EnvYawnRepeat); v != "" && err == nil {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return fmt.Errorf("%s: %w", EnvYawnRepeat, perr)
		}
		s.Detector.YawnRepeatCount = n
	}
	if v := os.Getenv(EnvSay); v != "" {
		s.Say = v
	}
	return err
}
