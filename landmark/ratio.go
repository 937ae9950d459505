package landmark

// Ratios are the per-frame scalars the fatigue tracker consumes.
type Ratios struct {
	MAR float64 // mouth openness
	EAR float64 // mean eye openness of both eyes
}

// MouthOpenness returns the inner lip gap divided by mouth width, or 0 when
// the corners coincide.
func MouthOpenness(m MouthSet) float64 {
	vertical := Distance(m[MouthUpperInner], m[MouthLowerInner])
	horizontal := Distance(m[MouthLeftCorner], m[MouthRightCorner])
	if horizontal == 0 {
		return 0
	}
	return vertical / horizontal
}

// EyeOpenness returns the mean of the two lid gaps divided by eye width, or 0
// when the corners coincide.
func EyeOpenness(e EyeSet) float64 {
	v1 := Distance(e[EyeUpperA], e[EyeLowerA])
	v2 := Distance(e[EyeUpperB], e[EyeLowerB])
	horizontal := Distance(e[EyeOuterCorner], e[EyeInnerCorner])
	if horizontal == 0 {
		return 0
	}
	return (v1 + v2) / (2.0 * horizontal)
}

func Measure(f Face) Ratios {
	return Ratios{
		MAR: MouthOpenness(f.Mouth),
		EAR: (EyeOpenness(f.LeftEye) + EyeOpenness(f.RightEye)) / 2,
	}
}
