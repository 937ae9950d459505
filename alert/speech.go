package alert

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// SpeechRate is the speaking rate in words per minute.
const SpeechRate = 150

var ErrNoSpeech = errors.New("alert: no speech command available")

// Speech speaks utterances through an external text-to-speech command.
type Speech struct {
	argv  []string
	stdin bool // utterance goes to stdin instead of the last argument
}

// NewSpeech returns a Speech sink. A non-empty command line replaces the
// platform default; the utterance is appended as its last argument.
func NewSpeech(command string) (*Speech, error) {
	if fields := strings.Fields(command); len(fields) > 0 {
		if _, err := exec.LookPath(fields[0]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSpeech, err)
		}
		return &Speech{argv: fields}, nil
	}
	return defaultSpeech()
}

func defaultSpeech() (*Speech, error) {
	rate := strconv.Itoa(SpeechRate)
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("say"); err == nil {
			return &Speech{argv: []string{"say", "-r", rate}}, nil
		}
	case "windows":
		if _, err := exec.LookPath("powershell"); err == nil {
			script := "Add-Type -AssemblyName System.Speech; " +
				"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; " +
				"$s.Speak([Console]::In.ReadToEnd())"
			return &Speech{argv: []string{"powershell", "-NoProfile", "-Command", script}, stdin: true}, nil
		}
	default:
		for _, name := range []string{"espeak-ng", "espeak"} {
			if _, err := exec.LookPath(name); err == nil {
				return &Speech{argv: []string{name, "-s", rate}}, nil
			}
		}
		if _, err := exec.LookPath("spd-say"); err == nil {
			return &Speech{argv: []string{"spd-say", "--wait"}}, nil
		}
	}
	return nil, ErrNoSpeech
}

func (s *Speech) Name() string { return "speech:" + s.argv[0] }

func (s *Speech) Alert(ctx context.Context, _ Kind, utterance string) error {
	args := append([]string(nil), s.argv[1:]...)
	if !s.stdin {
		args = append(args, utterance)
	}
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if s.stdin {
		cmd.Stdin = strings.NewReader(utterance)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", s.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", s.argv[0], err)
	}
	return nil
}
