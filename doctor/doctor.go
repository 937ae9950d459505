package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"drowse/alert"
	"drowse/landmark"
	"drowse/source"
)

// sampleFrames is how many frames of a landmark file are inspected.
const sampleFrames = 30

type Options struct {
	LogDir  string
	Sink    alert.Sink
	File    string // recorded landmark file, optional
	Mapping landmark.Mapping

	// Interactive asks the user to confirm they heard the test alert.
	Interactive bool
	Out         io.Writer
}

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Interactive {
		resetTerminal()
	}
	setupInterruptHandler()

	out := opts.Out
	fmt.Fprintln(out, "drowse doctor - system diagnostics")
	fmt.Fprintln(out, "==================================")

	allPass := true
	if !checkLogDir(out, opts.LogDir) {
		allPass = false
	}
	if !checkAlert(out, opts.Sink, opts.Interactive) {
		allPass = false
	}
	if !checkSource(out, opts.File, opts.Mapping) {
		allPass = false
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkLogDir(out io.Writer, dir string) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1/3] Log directory")
	fmt.Fprintf(out, "Using: %s\n", dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(out, "  FAIL: cannot create log directory: %v\n", err)
		return false
	}
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok\n"), 0644); err != nil {
		fmt.Fprintf(out, "  FAIL: log directory not writable: %v\n", err)
		return false
	}
	os.Remove(probe)
	fmt.Fprintln(out, "  PASS: log directory writable")
	return true
}

func checkAlert(out io.Writer, sink alert.Sink, interactive bool) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[2/3] Alert playback")
	if sink == nil {
		fmt.Fprintln(out, "  FAIL: no alert output configured")
		return false
	}
	fmt.Fprintf(out, "Playing test alert via %s...\n", sink.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := sink.Alert(ctx, alert.KindTest, alert.TestUtterance); err != nil {
		fmt.Fprintf(out, "  FAIL: playback error: %v\n", err)
		return false
	}
	if !interactive {
		fmt.Fprintln(out, "  PASS: alert played without error")
		return true
	}

	heard, err := askYesNo(out, "Did you hear the alert? [y/n] ")
	if err != nil {
		fmt.Fprintf(out, "  FAIL: reading answer: %v\n", err)
		return false
	}
	if !heard {
		fmt.Fprintln(out, "  FAIL: alert not confirmed")
		return false
	}
	fmt.Fprintln(out, "  PASS: alert verified by user")
	return true
}

// askYesNo reads a single keypress in raw mode.
func askYesNo(out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return false, err
		}
		switch buf[0] {
		case 'y', 'Y':
			fmt.Fprint(out, "y\r\n")
			return true, nil
		case 'n', 'N', 13:
			fmt.Fprint(out, "n\r\n")
			return false, nil
		case 3: // Ctrl+C
			fmt.Fprint(out, "\r\n")
			term.Restore(fd, oldState)
			os.Exit(1)
		}
	}
}

func checkSource(out io.Writer, path string, mapping landmark.Mapping) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[3/3] Landmark file")
	if path == "" {
		fmt.Fprintln(out, "  SKIP: no file given (drowse -doctor <frames.jsonl>)")
		return true
	}

	src, err := source.NewFile(path, false)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	defer src.Close()

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}

	var frames, faces int
	var sum landmark.Ratios
	for frames < sampleFrames {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "  FAIL: frame %d: %v\n", frames+1, err)
			return false
		}
		frames++
		if len(f.Faces) == 0 {
			continue
		}
		face, err := mapping.Extract(f.Faces[0], f.Width, f.Height)
		if err != nil {
			fmt.Fprintf(out, "  FAIL: frame %d: %v\n", f.Seq, err)
			return false
		}
		r := landmark.Measure(face)
		sum.MAR += r.MAR
		sum.EAR += r.EAR
		faces++
	}

	if frames == 0 {
		fmt.Fprintln(out, "  FAIL: no frames in file")
		return false
	}
	fps := "unknown (30 assumed)"
	if src.FPS() > 0 {
		fps = fmt.Sprintf("%.1f", src.FPS())
	}
	fmt.Fprintf(out, "Frames sampled: %d, with face: %d, fps: %s\n", frames, faces, fps)
	if faces == 0 {
		fmt.Fprintln(out, "  FAIL: no face in sampled frames")
		return false
	}
	fmt.Fprintf(out, "Mean MAR %.3f, mean EAR %.3f (%s mapping)\n", sum.MAR/float64(faces), sum.EAR/float64(faces), mapping.Name)
	fmt.Fprintln(out, "  PASS: landmark file readable")
	return true
}
