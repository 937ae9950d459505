// Package source delivers landmark frames produced by an external face-mesh
// process. Frames travel as JSON objects, one per line or websocket message:
//
//	{"fps":30}
//	{"seq":1,"ts":1712345678.25,"w":640,"h":480,"faces":[[[0.41,0.52],...]]}
//
// The optional first object carries only the frame rate.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"drowse/landmark"
)

var (
	ErrMalformed = errors.New("source: malformed frame")
	ErrClosed    = errors.New("source: closed")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Face is one detected face in face-mesh numbering.
type Face []landmark.NormPoint

type Frame struct {
	Seq       int64
	Timestamp time.Time // zero when the producer sent none
	Width     int
	Height    int
	Faces     []Face
}

// Source is a stream of landmark frames. Next returns io.EOF at the end of a
// finite stream; any other error means the source is dead.
type Source interface {
	// Start blocks until the first frame or header is available.
	Start(ctx context.Context) error
	// FPS is the producer's frame rate, 0 when unknown.
	FPS() float64
	Next(ctx context.Context) (Frame, error)
	Name() string
	Close() error
}

type wireFrame struct {
	Seq   int64          `json:"seq"`
	TS    float64        `json:"ts"`
	W     int            `json:"w"`
	H     int            `json:"h"`
	FPS   float64        `json:"fps"`
	Faces [][][2]float64 `json:"faces"`
}

// decode parses one message. header is true for fps-only messages.
func decode(data []byte) (f Frame, fps float64, header bool, err error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return f, 0, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if math.IsNaN(w.FPS) || w.FPS < 0 {
		return f, 0, false, fmt.Errorf("%w: fps %v", ErrMalformed, w.FPS)
	}
	if w.W == 0 && w.H == 0 && w.Faces == nil {
		return f, w.FPS, true, nil
	}
	if w.W <= 0 || w.H <= 0 {
		return f, 0, false, fmt.Errorf("%w: frame %d has size %dx%d", ErrMalformed, w.Seq, w.W, w.H)
	}

	f = Frame{Seq: w.Seq, Width: w.W, Height: w.H}
	if w.TS > 0 {
		sec, frac := math.Modf(w.TS)
		f.Timestamp = time.Unix(int64(sec), int64(frac*1e9))
	}
	f.Faces = make([]Face, len(w.Faces))
	for i, pts := range w.Faces {
		face := make(Face, len(pts))
		for j, p := range pts {
			face[j] = landmark.NormPoint{X: p[0], Y: p[1]}
		}
		f.Faces[i] = face
	}
	return f, w.FPS, false, nil
}

// Encode renders a frame in the wire format. Used by the recorder and tests.
func Encode(f Frame, fps float64) ([]byte, error) {
	w := wireFrame{Seq: f.Seq, W: f.Width, H: f.Height, FPS: fps}
	if !f.Timestamp.IsZero() {
		w.TS = float64(f.Timestamp.UnixNano()) / 1e9
	}
	w.Faces = make([][][2]float64, len(f.Faces))
	for i, face := range f.Faces {
		pts := make([][2]float64, len(face))
		for j, p := range face {
			pts[j] = [2]float64{p.X, p.Y}
		}
		w.Faces[i] = pts
	}
	return json.Marshal(w)
}

// EncodeHeader renders an fps-only header message.
func EncodeHeader(fps float64) ([]byte, error) {
	return json.Marshal(struct {
		FPS float64 `json:"fps"`
	}{fps})
}
