// Package tui renders a live terminal view of a running controller:
// one row per joint with its sensed position and commanded torque.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const barWidth = 24

type sample struct {
	t   float64
	q   []float64
	tau []float64
}

// Monitor is a runner observer that feeds a terminal UI. Ticks arriving
// faster than the UI drains them are dropped, never blocking the loop.
type Monitor struct {
	joints  []string
	samples chan sample
	done    chan struct{}
}

func NewMonitor(joints []string) *Monitor {
	return &Monitor{
		joints:  joints,
		samples: make(chan sample, 64),
		done:    make(chan struct{}),
	}
}

func (m *Monitor) OnTick(q, qd, tau []float64, t float64) {
	s := sample{t: t, q: append([]float64(nil), q...), tau: append([]float64(nil), tau...)}
	select {
	case m.samples <- s:
	default:
	}
}

// Close signals the UI that the run has finished.
func (m *Monitor) Close() { close(m.done) }

// Run blocks displaying the UI until the run finishes or the user
// quits.
func (m *Monitor) Run() error {
	p := tea.NewProgram(newView(m))
	_, err := p.Run()
	return err
}

type view struct {
	mon    *Monitor
	latest sample
	maxTau float64
	ticks  int
	done   bool
}

func newView(m *Monitor) *view {
	return &view{mon: m, maxTau: 1e-9}
}

type sampleMsg sample

type doneMsg struct{}

func (v *view) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-v.mon.samples:
			return sampleMsg(s)
		case <-v.mon.done:
			return doneMsg{}
		}
	}
}

func (v *view) Init() tea.Cmd {
	return v.listen()
}

func (v *view) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return v, tea.Quit
		}
	case sampleMsg:
		v.latest = sample(msg)
		v.ticks++
		for _, tau := range v.latest.tau {
			if a := math.Abs(tau); a > v.maxTau {
				v.maxTau = a
			}
		}
		return v, v.listen()
	case doneMsg:
		v.done = true
		return v, tea.Quit
	}
	return v, nil
}

func (v *view) View() string {
	var b strings.Builder
	b.WriteString(cyan.Render("gravcomp") + dim.Render(fmt.Sprintf("  t=%8.3fs  ticks=%d", v.latest.t, v.ticks)) + "\n\n")

	if v.latest.q == nil {
		b.WriteString(dim.Render("waiting for first tick...") + "\n")
		return b.String()
	}

	for i, name := range v.mon.joints {
		q, tau := v.latest.q[i], v.latest.tau[i]
		b.WriteString(fmt.Sprintf("%s %s %s  %s %s %s\n",
			white.Render(fmt.Sprintf("%-16s", name)),
			bar(q/math.Pi, green),
			dim.Render(fmt.Sprintf("q=%+7.3f rad", q)),
			bar(tau/v.maxTau, yellow),
			dim.Render(fmt.Sprintf("tau=%+8.3f Nm", tau)),
			"",
		))
	}

	b.WriteString("\n" + dim.Render("q to quit") + "\n")
	return b.String()
}

// bar renders a signed value in [-1, 1] as a centered bar.
func bar(frac float64, style lipgloss.Style) string {
	if frac > 1 {
		frac = 1
	}
	if frac < -1 {
		frac = -1
	}
	half := barWidth / 2
	cells := int(math.Round(frac * float64(half)))

	var b strings.Builder
	for i := -half; i <= half; i++ {
		switch {
		case i == 0:
			b.WriteString(dim.Render("|"))
		case cells > 0 && i > 0 && i <= cells:
			b.WriteString(style.Render("█"))
		case cells < 0 && i < 0 && i >= cells:
			b.WriteString(style.Render("█"))
		default:
			b.WriteString(dim.Render("·"))
		}
	}
	return b.String()
}
