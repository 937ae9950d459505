//go:build darwin

package beep

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	initErr   error
	cache     = map[Pattern][]byte{}
	soundOnce sync.Once

	// Playback state - accessed atomically from callback
	playing  atomic.Pointer[[]byte]
	playPos  atomic.Uint32
	playDone atomic.Pointer[chan struct{}]
	playMu   sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 2
	config.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: dataCallback,
	}

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, callbacks)
	return err
}

func initSound() {
	malgoCtx, initErr = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if initErr != nil {
		return
	}

	for _, p := range []Pattern{PatternYawn, PatternDrowsy, PatternTest} {
		cache[p] = toBytes(samples(p))
	}

	if initErr = initDevice(); initErr != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func toBytes(s []int16) []byte {
	buf := make([]byte, len(s)*2)
	for i, v := range s {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

func finish() {
	playing.Store(nil)
	if ch := playDone.Swap(nil); ch != nil {
		close(*ch)
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	s := playing.Load()
	if s == nil || len(*s) == 0 {
		clear(pOutput)
		return
	}

	pos := playPos.Load()
	total := uint32(len(*s))
	bytesToWrite := frameCount * 4 // stereo S16
	remaining := total - pos

	if remaining == 0 {
		clear(pOutput)
		finish()
		return
	}

	if bytesToWrite > remaining {
		bytesToWrite = remaining
	}

	copy(pOutput[:bytesToWrite], (*s)[pos:pos+bytesToWrite])
	playPos.Store(pos + bytesToWrite)
	clear(pOutput[bytesToWrite:])
}

func playBytes(s []byte) error {
	if malgoCtx == nil || device == nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, initErr)
	}
	if len(s) == 0 {
		return nil
	}

	playMu.Lock()
	defer playMu.Unlock()

	// Stop device first to ensure clean state (no-op if not running)
	device.Stop()

	done := make(chan struct{})
	playPos.Store(0)
	playDone.Store(&done)
	playing.Store(&s)

	if err := device.Start(); err != nil {
		// Try recreating device (handles macOS sleep/wake)
		device.Uninit()
		if err := initDevice(); err != nil {
			finish()
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := device.Start(); err != nil {
			finish()
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	<-done
	device.Stop()
	return nil
}

func Init() {
	soundOnce.Do(initSound)
}

// Play blocks until the pattern has finished playing.
func Play(p Pattern) error {
	if disabled {
		return nil
	}
	soundOnce.Do(initSound)
	return playBytes(cache[p])
}
