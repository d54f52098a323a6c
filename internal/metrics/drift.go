package metrics

import "math"

// HoldDrift tracks the largest per-joint position excursion from the
// pose at the first observed tick. A well-tuned gravity compensation
// run keeps this small.
type HoldDrift struct {
	name  string
	ref   []float64
	worst float64
}

func NewHoldDrift() *HoldDrift {
	return &HoldDrift{
		name: "hold_drift",
	}
}

func (m *HoldDrift) Name() string {
	return m.name
}

func (m *HoldDrift) Observe(q, qd, tau []float64, t float64) {
	if m.ref == nil {
		m.ref = make([]float64, len(q))
		copy(m.ref, q)
		return
	}
	for i, v := range q {
		if d := math.Abs(v - m.ref[i]); d > m.worst {
			m.worst = d
		}
	}
}

func (m *HoldDrift) Value() float64 {
	return m.worst
}

func (m *HoldDrift) Reset() {
	m.ref = nil
	m.worst = 0
}
