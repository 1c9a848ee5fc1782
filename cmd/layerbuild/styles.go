// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/layerbuild/layerbuild/pkg/patch"
)

// Color palette shared by all CLI output.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED") // titles and sections
	ColorMuted     = lipgloss.Color("#6B7280") // hints and paths
	ColorSuccess   = lipgloss.Color("#10B981") // patched files
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B") // dry-run markers
	ColorHighlight = lipgloss.Color("#3B82F6") // module names
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	CmdStyle      = lipgloss.NewStyle().Foreground(ColorHighlight)

	sectionStyle = TitleStyle.MarginTop(1)
	pathStyle    = SubtitleStyle
)

// stateMarker is the one-character prefix of a patch line.
func stateMarker(s patch.State) string {
	switch s {
	case patch.StatePatched:
		return SuccessStyle.Render("✓")
	case patch.StateWouldPatch:
		return WarningStyle.Render("~")
	default:
		return SubtitleStyle.Render("=")
	}
}
