// Package runner is the owning framework of a controller: it drives the
// hardware read → controller update → hardware write cycle at a fixed
// period, strictly sequentially, against a simulated robot.
package runner

import (
	"context"
	"fmt"

	"github.com/armkit/gravcomp/internal/controller"
	"github.com/armkit/gravcomp/internal/hw"
)

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(q, qd, tau []float64, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every tick's write phase.
type Observer interface {
	OnTick(q, qd, tau []float64, t float64)
}

type Config struct {
	RateHz   float64
	Duration float64
}

type Result struct {
	Joints     []string
	Times      []float64
	Positions  [][]float64
	Velocities [][]float64
	Torques    [][]float64
	Metrics    map[string]float64
}

type Runner struct {
	robot     *hw.SimRobot
	ctrl      *controller.Controller
	metrics   []Metric
	observers []Observer
}

func New(robot *hw.SimRobot, ctrl *controller.Controller) *Runner {
	return &Runner{robot: robot, ctrl: ctrl}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Run starts the controller and invokes its update once per period
// until the duration elapses or the context is canceled. Within a tick
// the order is fixed: read hardware state, controller update, write
// commands, then advance the plant. Ticks never overlap.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.RateHz <= 0 {
		return nil, fmt.Errorf("runner: rate must be positive, got %g", cfg.RateHz)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("runner: duration must be positive, got %g", cfg.Duration)
	}

	if err := r.ctrl.Start(); err != nil {
		return nil, err
	}
	defer r.ctrl.Stop()

	for _, m := range r.metrics {
		m.Reset()
	}

	dt := 1.0 / cfg.RateHz
	ticks := int(cfg.Duration * cfg.RateHz)
	n := len(r.robot.Joints())

	result := &Result{
		Joints:     r.robot.Joints(),
		Times:      make([]float64, 0, ticks),
		Positions:  make([][]float64, 0, ticks),
		Velocities: make([][]float64, 0, ticks),
		Torques:    make([][]float64, 0, ticks),
		Metrics:    make(map[string]float64),
	}

	t := 0.0
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		r.robot.Read()
		r.ctrl.Update(t, dt)
		r.robot.Write()

		q := make([]float64, n)
		qd := make([]float64, n)
		tau := make([]float64, n)
		r.robot.Snapshot(q, qd, tau)

		for _, m := range r.metrics {
			m.Observe(q, qd, tau, t)
		}
		for _, o := range r.observers {
			o.OnTick(q, qd, tau, t)
		}

		result.Times = append(result.Times, t)
		result.Positions = append(result.Positions, q)
		result.Velocities = append(result.Velocities, qd)
		result.Torques = append(result.Torques, tau)

		if err := r.robot.Step(dt); err != nil {
			return result, fmt.Errorf("runner: plant step at t=%.4f: %w", t, err)
		}
		t += dt
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}
