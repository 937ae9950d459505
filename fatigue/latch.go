package fatigue

// Latch lets an alert fire once per episode. It re-arms as soon as the raw
// per-frame condition is seen false, regardless of the triggered state.
type Latch struct {
	set bool
}

// Observe returns true when an alert should be dispatched for this frame.
func (l *Latch) Observe(raw, triggered bool) bool {
	if !raw {
		l.set = false
		return false
	}
	if triggered && !l.set {
		l.set = true
		return true
	}
	return false
}

func (l *Latch) Set() bool { return l.set }

func (l *Latch) Reset() { l.set = false }
