package ui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by table and status output. Kept to a handful of
// semantic names rather than a raw palette so a 256-color fallback can be
// swapped in later without touching call sites.
var (
	ColorAccent = lipgloss.Color("39")  // layer/ref highlights
	ColorWarn   = lipgloss.Color("214") // conflicts, detached workspace
	ColorPass   = lipgloss.Color("42")  // clean apply, fast-forward
	ColorMuted  = lipgloss.Color("245") // borders, hints, secondary text
)
