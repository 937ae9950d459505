package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"drowse/fatigue"
	"drowse/landmark"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvMouthThreshold, EnvYawnRepeat, EnvYawnWindow, EnvEyeThreshold, EnvEyeClosed, EnvFPS, EnvSay} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Detector != fatigue.DefaultConfig() {
		t.Errorf("Detector = %+v, want defaults", s.Detector)
	}
	if s.Mapping != landmark.MediaPipe {
		t.Errorf("Mapping = %+v, want MediaPipe", s.Mapping)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "drowse.yaml", `
mouth_threshold: 0.7
yawn_repeat_count: 3
yawn_window: 90s
eye_closed: 1500ms
fps: 24
say: espeak-ng -v en
mapping:
  name: shifted
  mouth: [1, 2, 3, 4, 5, 6, 7]
  left_eye: [8, 9, 10, 11, 12, 13]
  right_eye: [14, 15, 16, 17, 18, 19]
`)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := fatigue.Config{
		MouthThreshold:    0.7,
		YawnRepeatCount:   3,
		YawnWindow:        90 * time.Second,
		EyeThreshold:      fatigue.DefaultEyeThreshold,
		EyeClosedDuration: 1500 * time.Millisecond,
	}
	if s.Detector != want {
		t.Errorf("Detector = %+v, want %+v", s.Detector, want)
	}
	if s.FPS != 24 || s.Say != "espeak-ng -v en" {
		t.Errorf("FPS=%v Say=%q", s.FPS, s.Say)
	}
	if s.Mapping.Name != "shifted" || s.Mapping.RightEye[5] != 19 || s.Mapping.Mouth[0] != 1 {
		t.Errorf("Mapping = %+v", s.Mapping)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "drowse.yaml", "eye_threshold: 0.25\nyawn_repeat_count: 4\n")
	t.Setenv(EnvEyeThreshold, "0.18")
	t.Setenv(EnvYawnWindow, "2m")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Detector.EyeThreshold != 0.18 || s.Detector.YawnRepeatCount != 4 || s.Detector.YawnWindow != 2*time.Minute {
		t.Errorf("Detector = %+v", s.Detector)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	short := writeFile(t, "short.yaml", "mapping:\n  mouth: [1, 2, 3]\n  left_eye: [1,2,3,4,5,6]\n  right_eye: [1,2,3,4,5,6]\n")
	if _, err := Load(short); !errors.Is(err, landmark.ErrSetSize) {
		t.Errorf("short mapping err = %v, want ErrSetSize", err)
	}

	zero := writeFile(t, "zero.yaml", "yawn_repeat_count: 0\n")
	if _, err := Load(zero); !errors.Is(err, fatigue.ErrConfig) {
		t.Errorf("zero repeat err = %v, want ErrConfig", err)
	}

	t.Setenv(EnvMouthThreshold, "wide")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unparsable env value")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", EnvYawnRepeat+"=5\n")
	// godotenv does not override variables that are already set, and
	// t.Setenv above left it set to "", so unset it first.
	os.Unsetenv(EnvYawnRepeat)
	t.Cleanup(func() { os.Unsetenv(EnvYawnRepeat) })

	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Detector.YawnRepeatCount != 5 {
		t.Errorf("YawnRepeatCount = %d, want 5", s.Detector.YawnRepeatCount)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "none.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}
