package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const maxLineBytes = 4 << 20

type lineMsg struct {
	frame Frame
	err   error
}

// Reader reads newline-delimited frames, typically from a sidecar's stdout.
// Lines are scanned on a separate goroutine so a silent producer never holds
// up cancellation.
type Reader struct {
	name    string
	scanner *bufio.Scanner
	closer  io.Closer

	frames    chan lineMsg
	done      chan struct{}
	scanOnce  sync.Once
	closeOnce sync.Once
	err       error // terminal, repeated on every later Next

	mu  sync.Mutex
	fps float64

	pending  *Frame
	realtime bool
	lastSent time.Time
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{
		name:    "stdin",
		scanner: sc,
		frames:  make(chan lineMsg, frameQueueSize),
		done:    make(chan struct{}),
	}
}

// NewFile replays a recorded landmark file. With realtime set, frames are
// paced at the recorded frame rate.
func NewFile(path string, realtime bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f)
	r.name = "file:" + path
	r.closer = f
	r.realtime = realtime
	return r, nil
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) FPS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fps
}

func (r *Reader) Start(ctx context.Context) error {
	if r.pending != nil {
		return nil
	}
	f, err := r.receive(ctx)
	if err == io.EOF {
		// header-only or empty stream; Next reports EOF
		return nil
	}
	if err != nil {
		return err
	}
	r.pending = &f
	return nil
}

func (r *Reader) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	var f Frame
	if r.pending != nil {
		f, r.pending = *r.pending, nil
	} else {
		var err error
		if f, err = r.receive(ctx); err != nil {
			return Frame{}, err
		}
	}
	if r.realtime {
		if err := r.pace(ctx); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}

func (r *Reader) receive(ctx context.Context) (Frame, error) {
	if r.err != nil {
		return Frame{}, r.err
	}
	r.scanOnce.Do(func() { go r.scan() })
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-r.done:
		return Frame{}, ErrClosed
	case m := <-r.frames:
		if m.err != nil {
			r.err = m.err
			return Frame{}, m.err
		}
		return m.frame, nil
	}
}

func (r *Reader) pace(ctx context.Context) error {
	fps := r.FPS()
	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / fps)
	if !r.lastSent.IsZero() {
		if wait := interval - time.Since(r.lastSent); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	r.lastSent = time.Now()
	return nil
}

// scan feeds frames to receive until the stream ends, absorbing header lines
// and blank lines. The last message always carries an error, io.EOF for a
// clean end.
func (r *Reader) scan() {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		f, fps, header, err := decode(line)
		if err != nil {
			r.push(lineMsg{err: err})
			return
		}
		if fps > 0 {
			r.mu.Lock()
			r.fps = fps
			r.mu.Unlock()
		}
		if header {
			continue
		}
		if !r.push(lineMsg{frame: f}) {
			return
		}
	}
	if err := r.scanner.Err(); err != nil {
		r.push(lineMsg{err: fmt.Errorf("reading %s: %w", r.name, err)})
		return
	}
	r.push(lineMsg{err: io.EOF})
}

func (r *Reader) push(m lineMsg) bool {
	select {
	case r.frames <- m:
		return true
	case <-r.done:
		return false
	}
}

// Close stops the scanner goroutine. A goroutine parked in a read on a
// reader without a closer stays there until that read returns.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		if r.closer != nil {
			err = r.closer.Close()
		}
	})
	return err
}
