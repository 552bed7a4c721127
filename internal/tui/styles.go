// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0E0E0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF3030")).
			Bold(true)
)
