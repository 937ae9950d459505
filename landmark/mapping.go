package landmark

import "fmt"

// Mapping assigns a face-mesh landmark index to every semantic role of the
// mouth and eye sets. Swap it when the upstream model renumbers its mesh.
type Mapping struct {
	Name     string
	Mouth    [MouthPoints]int
	LeftEye  [EyePoints]int
	RightEye [EyePoints]int
}

// MediaPipe is the 468/478-point MediaPipe Face Mesh numbering.
var MediaPipe = Mapping{
	Name:     "mediapipe",
	Mouth:    [MouthPoints]int{61, 291, 0, 13, 14, 17, 78},
	LeftEye:  [EyePoints]int{33, 160, 158, 133, 153, 144},
	RightEye: [EyePoints]int{362, 385, 387, 263, 373, 380},
}

// MaxIndex returns the highest landmark index the mapping refers to.
func (m Mapping) MaxIndex() int {
	hi := 0
	for _, idx := range m.indices() {
		hi = max(hi, idx)
	}
	return hi
}

func (m Mapping) indices() []int {
	out := make([]int, 0, MouthPoints+2*EyePoints)
	out = append(out, m.Mouth[:]...)
	out = append(out, m.LeftEye[:]...)
	return append(out, m.RightEye[:]...)
}

// Extract selects the mapped landmarks of one face and converts them from
// normalized to pixel coordinates.
func (m Mapping) Extract(face []NormPoint, width, height int) (Face, error) {
	var f Face
	if hi := m.MaxIndex(); hi >= len(face) {
		return f, fmt.Errorf("%s mapping needs index %d, face has %d points: %w", m.Name, hi, len(face), ErrIndexRange)
	}
	w, h := float64(width), float64(height)
	pick := func(i int) Point {
		return Point{X: face[i].X * w, Y: face[i].Y * h}
	}
	for i, idx := range m.Mouth {
		f.Mouth[i] = pick(idx)
	}
	for i, idx := range m.LeftEye {
		f.LeftEye[i] = pick(idx)
	}
	for i, idx := range m.RightEye {
		f.RightEye[i] = pick(idx)
	}
	return f, nil
}

// Validate reports negative indices.
func (m Mapping) Validate() error {
	for _, idx := range m.indices() {
		if idx < 0 {
			return fmt.Errorf("%s mapping: negative index %d: %w", m.Name, idx, ErrIndexRange)
		}
	}
	return nil
}
