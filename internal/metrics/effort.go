// Package metrics provides per-run observability metrics for the
// control harness.
package metrics

import "math"

// TorqueEffort tracks the mean absolute commanded torque across all
// joints and ticks.
type TorqueEffort struct {
	name    string
	sum     float64
	samples int
}

func NewTorqueEffort() *TorqueEffort {
	return &TorqueEffort{
		name: "torque_effort",
	}
}

func (m *TorqueEffort) Name() string {
	return m.name
}

func (m *TorqueEffort) Observe(q, qd, tau []float64, t float64) {
	for _, v := range tau {
		m.sum += math.Abs(v)
	}
	m.samples++
}

func (m *TorqueEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *TorqueEffort) Reset() {
	m.sum = 0
	m.samples = 0
}
