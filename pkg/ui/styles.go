package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/remoni/pkg/render"
)

type Styles struct {
	Title         lipgloss.Style
	TitleInactive lipgloss.Style
	Status        lipgloss.Style
	Alert         lipgloss.Style
	Help          lipgloss.Style
	Flash         lipgloss.Style
	Input         lipgloss.Style
	Messages      render.Styles
}

func DefaultStyles() Styles {
	return Styles{
		Title:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		TitleInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Status:        lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		Alert:         lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Help:          lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Flash:         lipgloss.NewStyle().Foreground(lipgloss.Color("118")),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")),
		Messages: render.DefaultStyles(),
	}
}
