// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sdrfront/internal/engine"
	"sdrfront/internal/waterfall"
)

// chromeLines is the number of terminal lines below the waterfall: the
// axis, the status line and the help line.
const chromeLines = 3

// Controller is what the viewer needs from the engine.
type Controller interface {
	Spectrogram() *waterfall.Spectrogram
	Overlay(width, height int) waterfall.Overlay
	Tuning() engine.Tuning
	Retune(dFreq, dWidth float64) engine.Tuning
	MaxFrequency() float64
	TickStep() float64
	Stats() engine.Stats
}

type tickMsg time.Time

// StoppedMsg tells the viewer the engine has stopped. A nil Err means a
// clean shutdown.
type StoppedMsg struct{ Err error }

// Viewer is the bubbletea model of the terminal waterfall. Each spectrogram
// pixel pair becomes one character cell drawn with an upper half block.
type Viewer struct {
	ctrl     Controller
	keys     viewerKeys
	help     help.Model
	interval time.Duration

	pix     []waterfall.Color
	frame   waterfall.Frame
	overlay waterfall.Overlay

	width, height int
	cursor        int // pointer column over the waterfall, -1 when away
	err           error
}

// NewViewer returns a viewer that refreshes every interval.
func NewViewer(ctrl Controller, interval time.Duration) Viewer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return Viewer{
		ctrl:     ctrl,
		keys:     newViewerKeys(),
		help:     help.New(),
		interval: interval,
		cursor:   -1,
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the render timer.
func (m Viewer) Init() tea.Cmd {
	return tick(m.interval)
}

// Err returns the error that stopped the engine, if any.
func (m Viewer) Err() error { return m.err }

func (m Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		rows := max(msg.Height-chromeLines, 1) * 2
		// Resize logs and keeps the old buffer on a bad geometry.
		_ = m.ctrl.Spectrogram().Resize(max(msg.Width, 1), rows)
		m.cursor = -1
		m.snapshot()

	case tea.MouseMsg:
		// Each frame column is one cell and two frame rows share a line.
		if m.frame.Width == 0 || msg.X < 0 || msg.X >= m.frame.Width || msg.Y < 0 || msg.Y >= m.frame.Height/2 {
			m.cursor = -1
			break
		}
		m.cursor = msg.X
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.ctrl.Retune(m.cursorFrequency()-m.ctrl.Tuning().Frequency, 0)
			m.overlay = m.ctrl.Overlay(m.frame.Width, m.frame.Height)
		}

	case tickMsg:
		m.snapshot()
		return m, tick(m.interval)

	case StoppedMsg:
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		step := m.ctrl.TickStep()
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Down):
			m.ctrl.Retune(-step, 0)
		case key.Matches(msg, m.keys.Up):
			m.ctrl.Retune(step, 0)
		case key.Matches(msg, m.keys.DownFast):
			m.ctrl.Retune(-10*step, 0)
		case key.Matches(msg, m.keys.UpFast):
			m.ctrl.Retune(10*step, 0)
		case key.Matches(msg, m.keys.Wider):
			m.ctrl.Retune(0, 2*step)
		case key.Matches(msg, m.keys.Narrower):
			m.ctrl.Retune(0, -2*step)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		m.overlay = m.ctrl.Overlay(m.frame.Width, m.frame.Height)
	}
	return m, nil
}

// snapshot copies the current frame so View never holds the spectrogram
// lock.
func (m *Viewer) snapshot() {
	m.frame = m.ctrl.Spectrogram().RenderInto(m.pix)
	m.pix = m.frame.Pix
	m.overlay = m.ctrl.Overlay(m.frame.Width, m.frame.Height)
}

func (m Viewer) View() string {
	if m.frame.Width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder
	m.renderWaterfall(&sb)
	sb.WriteString(axisStyle.Render(m.axisLine()))
	sb.WriteByte('\n')
	sb.WriteString(m.statusLine())
	sb.WriteByte('\n')
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// renderWaterfall draws two frame rows per line. Runs of cells with the same
// colour pair share one style so the output stays small.
func (m Viewer) renderWaterfall(sb *strings.Builder) {
	f := m.frame
	for y := 0; y+1 < f.Height; y += 2 {
		var run strings.Builder
		var runTop, runBottom waterfall.Color
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(runTop.Hex())).
				Background(lipgloss.Color(runBottom.Hex()))
			sb.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < f.Width; x++ {
			top := waterfall.Blend(f.Pix[y*f.Width+x], m.overlay, x, y)
			bottom := waterfall.Blend(f.Pix[(y+1)*f.Width+x], m.overlay, x, y+1)
			if run.Len() > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			run.WriteString("▀")
		}
		flush()
		sb.WriteByte('\n')
	}
}

// axisLine places the overlay's frequency labels under their ticks,
// skipping any that would overlap the previous label.
func (m Viewer) axisLine() string {
	line := []rune(strings.Repeat(" ", m.frame.Width))
	next := 0
	for _, l := range m.overlay.Labels {
		x := l.X - 2 // labels sit two pixels right of their tick
		if x < next || x+len(l.Text) > len(line) {
			continue
		}
		copy(line[x:], []rune(l.Text))
		next = x + len(l.Text) + 1
	}
	return string(line)
}

func (m Viewer) cursorFrequency() float64 {
	return waterfall.XToFrequency(m.cursor, m.ctrl.MaxFrequency(), m.frame.Width)
}

func (m Viewer) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Stopped: %v", m.err))
	}
	t := m.ctrl.Tuning()
	status := fmt.Sprintf("Tune %.0f Hz   Passband %.0f Hz   Level %.1f dB   Band 0-%.0f Hz",
		t.Frequency, t.PassbandWidth, m.ctrl.Stats().LevelDB, m.ctrl.MaxFrequency())
	if m.cursor >= 0 {
		status += fmt.Sprintf("   Cursor %.0f Hz", m.cursorFrequency())
	}
	return infoStyle.Render(status)
}

// RunViewer runs the viewer on the alternate screen until the user quits or
// stopped delivers the engine's exit status. It returns the engine error
// the viewer saw, if any.
func RunViewer(ctrl Controller, interval time.Duration, stopped <-chan error) error {
	p := tea.NewProgram(NewViewer(ctrl, interval), tea.WithAltScreen(), tea.WithMouseCellMotion())
	go func() {
		if err, ok := <-stopped; ok {
			p.Send(StoppedMsg{Err: err})
		}
	}()
	final, err := p.Run()
	if err != nil {
		return err
	}
	if v, ok := final.(Viewer); ok {
		return v.Err()
	}
	return nil
}
