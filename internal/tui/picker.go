// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sdrfront/internal/audio"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	RateScreen
)

// standardRates are offered on the rate screen; the device default is
// added when it is not one of them.
var standardRates = []float64{44100, 48000, 96000, 192000}

// Selection is the outcome of the device picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// DevicePicker lets the user choose a capture device and its hardware rate
// before the engine starts.
type DevicePicker struct {
	fetch         func() ([]audio.Device, error)
	keys          pickerKeys
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	rates     []float64
	rateIndex int

	selection *Selection
}

// NewDevicePicker returns a picker listing the capture-capable devices that
// fetch reports.
func NewDevicePicker(fetch func() ([]audio.Device, error)) DevicePicker {
	return DevicePicker{
		fetch:        fetch,
		keys:         newPickerKeys(),
		activeScreen: ListScreen,
	}
}

// Selected returns the confirmed choice, or false if the user quit.
func (m DevicePicker) Selected() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

// Init fetches the device list.
func (m DevicePicker) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		inputs := devices[:0:0]
		for _, d := range devices {
			if d.MaxInputChannels > 0 {
				inputs = append(inputs, d)
			}
		}
		return devicesMsg{inputs}
	}
}

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, m.keys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, m.keys.Down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, m.keys.Select):
				if len(m.devices) > 0 {
					m.activeScreen = RateScreen
					m.rates, m.rateIndex = ratesFor(m.devices[m.selectedIndex])
				}
			}

		case RateScreen:
			switch {
			case key.Matches(msg, m.keys.Back):
				m.activeScreen = ListScreen
			case key.Matches(msg, m.keys.Up):
				if m.rateIndex > 0 {
					m.rateIndex--
				}
			case key.Matches(msg, m.keys.Down):
				if m.rateIndex < len(m.rates)-1 {
					m.rateIndex++
				}
			case key.Matches(msg, m.keys.Select):
				m.selection = &Selection{
					Device:     m.devices[m.selectedIndex],
					SampleRate: m.rates[m.rateIndex],
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// ratesFor returns the offered rates for d and the index of its default.
func ratesFor(d audio.Device) ([]float64, int) {
	rates := append([]float64(nil), standardRates...)
	for i, r := range rates {
		if r == d.DefaultSampleRate {
			return rates, i
		}
	}
	if d.DefaultSampleRate > 0 {
		rates = append(rates, d.DefaultSampleRate)
		return rates, len(rates) - 1
	}
	return rates, 1
}

func (m *DevicePicker) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderRates())
	}
}

// View renders the UI
func (m DevicePicker) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Capture Device")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Choose rate • q: Quit")
	} else {
		title = titleStyle.Render("Hardware Sample Rate")
		help = infoStyle.Render("↑/↓: Change • Enter: Start • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No capture devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		entry := fmt.Sprintf("[%d] %s\n    Input channels: %d, default rate: %.0f Hz\n",
			device.ID, device.Name, device.MaxInputChannels, device.DefaultSampleRate)
		if i == m.selectedIndex {
			entry = highlightStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePicker) renderRates() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", m.devices[m.selectedIndex].Name)
	for i, rate := range m.rates {
		marker := " "
		if i == m.rateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the picker on the alternate screen.
func PickDevice(fetch func() ([]audio.Device, error)) (Selection, bool, error) {
	final, err := tea.NewProgram(NewDevicePicker(fetch), tea.WithAltScreen()).Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok := final.(DevicePicker).Selected()
	return sel, ok, nil
}
