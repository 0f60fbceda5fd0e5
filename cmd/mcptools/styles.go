package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen   = lipgloss.Color("82")
	colorRed     = lipgloss.Color("196")
	colorGray    = lipgloss.Color("250")
	colorMagenta = lipgloss.Color("201")

	headerStyle = lipgloss.NewStyle().Bold(true)
	serverStyle = lipgloss.NewStyle().Foreground(colorMagenta)
	toolStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	descStyle   = lipgloss.NewStyle().Foreground(colorGray)
	errorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)
