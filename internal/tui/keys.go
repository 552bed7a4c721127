// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

// viewerKeys are the waterfall viewer bindings.
type viewerKeys struct {
	Down     key.Binding
	Up       key.Binding
	DownFast key.Binding
	UpFast   key.Binding
	Wider    key.Binding
	Narrower key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newViewerKeys() viewerKeys {
	return viewerKeys{
		Down: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "tune down"),
		),
		Up: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "tune up"),
		),
		DownFast: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("H", "tune down x10"),
		),
		UpFast: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("L", "tune up x10"),
		),
		Wider: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "widen passband"),
		),
		Narrower: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "narrow passband"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k viewerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Wider, k.Narrower, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k viewerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.DownFast, k.UpFast},
		{k.Wider, k.Narrower},
		{k.Help, k.Quit},
	}
}

// pickerKeys are the device picker bindings.
type pickerKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func newPickerKeys() pickerKeys {
	return pickerKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k")),
		Down:   key.NewBinding(key.WithKeys("down", "j")),
		Select: key.NewBinding(key.WithKeys("enter")),
		Back:   key.NewBinding(key.WithKeys("esc")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}
