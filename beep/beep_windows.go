//go:build windows

package beep

// No tone playback on Windows; the speech sink covers alerts there.

func Init() {}

func Play(Pattern) error {
	if disabled {
		return nil
	}
	return ErrUnavailable
}
