//go:build integration

package test_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"drowse/landmark"
	"drowse/source"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("DROWSE_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "DROWSE_TEST_BIN not set; build with: go build -o /tmp/drowse . && DROWSE_TEST_BIN=/tmp/drowse go test -tags integration ./test")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// face returns a face-mesh face with the given mouth and eye ratios.
func face(mar, ear float64) source.Face {
	f := make(source.Face, 468)
	for i := range f {
		f[i] = landmark.NormPoint{X: 0.5, Y: 0.5}
	}
	m := landmark.MediaPipe
	set := func(idx int, x, y float64) { f[idx] = landmark.NormPoint{X: x, Y: y} }
	set(m.Mouth[landmark.MouthLeftCorner], 0.4, 0.7)
	set(m.Mouth[landmark.MouthRightCorner], 0.6, 0.7)
	set(m.Mouth[landmark.MouthUpperInner], 0.5, 0.7-mar*0.1)
	set(m.Mouth[landmark.MouthLowerInner], 0.5, 0.7+mar*0.1)
	for _, e := range []struct {
		idx [landmark.EyePoints]int
		x0  float64
	}{{m.LeftEye, 0.3}, {m.RightEye, 0.6}} {
		set(e.idx[landmark.EyeOuterCorner], e.x0, 0.4)
		set(e.idx[landmark.EyeInnerCorner], e.x0+0.1, 0.4)
		set(e.idx[landmark.EyeUpperA], e.x0+0.03, 0.4-ear*0.05)
		set(e.idx[landmark.EyeLowerA], e.x0+0.03, 0.4+ear*0.05)
		set(e.idx[landmark.EyeUpperB], e.x0+0.07, 0.4-ear*0.05)
		set(e.idx[landmark.EyeLowerB], e.x0+0.07, 0.4+ear*0.05)
	}
	return f
}

func writeFrames(t *testing.T, fps float64, faces []source.Face) string {
	t.Helper()
	var buf bytes.Buffer
	hdr, _ := source.EncodeHeader(fps)
	buf.Write(hdr)
	buf.WriteByte('\n')
	for i, fc := range faces {
		fr := source.Frame{Seq: int64(i + 1), Width: 1280, Height: 1280, Faces: []source.Face{}}
		if fc != nil {
			fr.Faces = append(fr.Faces, fc)
		}
		line, err := source.Encode(fr, 0)
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func times(n int, f source.Face) []source.Face {
	out := make([]source.Face, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func runDrowse(t *testing.T, wantOK bool, args ...string) (logDir, output string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-env", filepath.Join(logDir, "none.env")}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if wantOK && err != nil {
		t.Fatalf("drowse exited with error: %v\noutput: %s", err, out)
	}
	if !wantOK && err == nil {
		t.Fatalf("drowse succeeded, expected failure\noutput: %s", out)
	}
	return logDir, string(out)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestClosedEyesSingleAlert(t *testing.T) {
	path := writeFrames(t, 30, times(65, face(0.3, 0.1)))
	logDir, out := runDrowse(t, true, "-test", path)

	if n := strings.Count(out, "ALERT drowsy"); n != 1 {
		t.Errorf("drowsy alerts printed = %d, want 1\n%s", n, out)
	}
	if !strings.Contains(out, "frames=65 no_face=0 yawn_alerts=0 drowsy_alerts=1") {
		t.Errorf("missing summary:\n%s", out)
	}
	history := readLog(t, logDir, "alerts_log.txt")
	if strings.Count(history, "\tdrowsy\t") != 1 {
		t.Errorf("alerts_log.txt = %q", history)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "Drowsiness alert triggered!", "drowsy_alert", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
}

func TestYawnsAndMissingFace(t *testing.T) {
	faces := []source.Face{face(1.0, 0.3), nil, nil, face(1.0, 0.3), face(0.3, 0.3)}
	logDir, out := runDrowse(t, true, "-test", writeFrames(t, 30, faces))

	if !strings.Contains(out, "frames=5 no_face=2 yawn_alerts=1 drowsy_alerts=0") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if strings.Count(out, "face lost") != 1 {
		t.Errorf("face lost should print once per absence:\n%s", out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if strings.Count(diag, "face_lost") != 1 {
		t.Errorf("face_lost logged %d times", strings.Count(diag, "face_lost"))
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "drowse.yaml")
	if err := os.WriteFile(cfg, []byte("eye_closed: 1s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeFrames(t, 30, times(40, face(0.3, 0.1)))

	_, out := runDrowse(t, true, "-config", cfg, "-test", path)
	if !strings.Contains(out, "drowsy_alerts=1") {
		t.Errorf("1s closure at 30fps should alert within 40 frames:\n%s", out)
	}

	_, out = runDrowse(t, true, "-config", cfg, "-closed", "2s", "-test", path)
	if !strings.Contains(out, "drowsy_alerts=0") {
		t.Errorf("-closed should override the config file:\n%s", out)
	}
}

func TestMalformedSourceFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"fps\":30}\n{\"seq\":1,\"w\":0,\"h\":480,\"faces\":[]}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, out := runDrowse(t, false, "-test", path)
	if !strings.Contains(out, "unable to access the landmark source") {
		t.Errorf("missing source error:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	_, out := runDrowse(t, true, "-version")
	if !strings.HasPrefix(out, "drowse ") {
		t.Errorf("version output = %q", out)
	}
}
