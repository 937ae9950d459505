//go:build linux

package beep

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	cache     = map[Pattern][]int16{}
	soundOnce sync.Once
	playMu    sync.Mutex
)

func initSound() {
	for _, p := range []Pattern{PatternYawn, PatternDrowsy, PatternTest} {
		cache[p] = samples(p)
	}
}

func playSamples(s []int16) error {
	if len(s) == 0 {
		return nil
	}
	c, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(s) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, s[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
	return stream.Error()
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
	playMu.Lock()
	defer playMu.Unlock()
	return playSamples(cache[p])
}
