// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdrfront/internal/audio"
)

var pickerDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 2, Name: "USB Receiver", MaxInputChannels: 1, MaxOutputChannels: 1, DefaultSampleRate: 22050},
}

func pickerUpdate(t *testing.T, m DevicePicker, msg tea.Msg) (DevicePicker, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	p, ok := next.(DevicePicker)
	require.True(t, ok)
	return p, cmd
}

func readyPicker(t *testing.T) DevicePicker {
	t.Helper()
	m := NewDevicePicker(func() ([]audio.Device, error) { return pickerDevices, nil })
	msg := m.Init()()
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = pickerUpdate(t, m, msg)
	return m
}

func TestPickerListsCaptureDevices(t *testing.T) {
	m := readyPicker(t)
	require.Len(t, m.devices, 2)
	assert.Equal(t, "Built-in Microphone", m.devices[0].Name)
	assert.Equal(t, "USB Receiver", m.devices[1].Name)
	assert.Contains(t, m.View(), "Capture Device")
	assert.Contains(t, m.View(), "USB Receiver")
	assert.NotContains(t, m.View(), "Built-in Output")
}

func TestPickerSelectsDeviceAndRate(t *testing.T) {
	m := readyPicker(t)
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, RateScreen, m.activeScreen)

	// 22050 is not a standard rate, so it is appended and preselected.
	assert.Equal(t, []float64{44100, 48000, 96000, 192000, 22050}, m.rates)
	assert.Equal(t, 4, m.rateIndex)

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, 2, sel.Device.ID)
	assert.Equal(t, 192000.0, sel.SampleRate)
}

func TestPickerBackAndQuit(t *testing.T) {
	m := readyPicker(t)
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, RateScreen, m.activeScreen)
	assert.Equal(t, 1, m.rateIndex, "48000 preselected")

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ListScreen, m.activeScreen)

	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestPickerFetchError(t *testing.T) {
	m := NewDevicePicker(func() ([]audio.Device, error) { return nil, errors.New("PortAudio not initialized") })
	msg := m.Init()()
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = pickerUpdate(t, m, msg)
	assert.Contains(t, m.View(), "Error: PortAudio not initialized")

	_, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
