package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/issueflow/internal/domain"
)

//nolint:gochecknoglobals // Intentional package-level constants for TUI styling API
var (
	// ColorPrimary is blue: active and in-progress states.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green: completed states.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow: states that need attention.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red: failed states.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray: inactive states and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates common output styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// CheckNoColor switches lipgloss to plain ASCII when colors are unwanted.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false if NO_COLOR is set (to any value, including
// empty) or TERM=dumb. See https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// StatusLabel turns a status value such as "in_progress" into "In Progress".
func StatusLabel(status string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}

// IssueStatusColor maps an issue status to its semantic color.
func IssueStatusColor(status domain.IssueStatus) lipgloss.AdaptiveColor {
	switch status {
	case domain.IssueStatusCompleted:
		return ColorSuccess
	case domain.IssueStatusFailed:
		return ColorError
	case domain.IssueStatusQueued, domain.IssueStatusExecuting:
		return ColorPrimary
	case domain.IssueStatusPlanned:
		return ColorWarning
	case domain.IssueStatusRegistered, domain.IssueStatusPlanning:
		return ColorMuted
	default:
		return ColorMuted
	}
}

// ItemStatusColor maps a queue item status to its semantic color.
func ItemStatusColor(status domain.ItemStatus) lipgloss.AdaptiveColor {
	switch status {
	case domain.ItemStatusCompleted:
		return ColorSuccess
	case domain.ItemStatusFailed:
		return ColorError
	case domain.ItemStatusExecuting:
		return ColorPrimary
	case domain.ItemStatusPending:
		return ColorMuted
	default:
		return ColorMuted
	}
}

// QueueStatusColor maps a queue status to its semantic color.
func QueueStatusColor(status domain.QueueStatus) lipgloss.AdaptiveColor {
	switch status {
	case domain.QueueStatusCompleted:
		return ColorSuccess
	case domain.QueueStatusFailed:
		return ColorError
	case domain.QueueStatusActive:
		return ColorPrimary
	default:
		return ColorMuted
	}
}

// ItemStatusIcon returns the icon shown next to a queue item status.
func ItemStatusIcon(status domain.ItemStatus) string {
	switch status {
	case domain.ItemStatusPending:
		return "○"
	case domain.ItemStatusExecuting:
		return "●"
	case domain.ItemStatusCompleted:
		return "✓"
	case domain.ItemStatusFailed:
		return "✗"
	default:
		return "?"
	}
}

// FormatStatus renders status text in color, keeping the label readable
// without color.
func FormatStatus(status string, color lipgloss.TerminalColor) string {
	return lipgloss.NewStyle().Foreground(color).Render(StatusLabel(status))
}

// stripANSI removes CSI and OSC escape sequences from s.
func stripANSI(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); {
		if next := skipANSI(runes, i); next != i {
			i = next
			continue
		}
		result.WriteRune(runes[i])
		i++
	}
	return result.String()
}

func skipANSI(runes []rune, i int) int {
	if runes[i] != '\x1b' || i+1 >= len(runes) {
		return i
	}
	switch runes[i+1] {
	case '[':
		for i += 2; i < len(runes); i++ {
			if c := runes[i]; (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				return i + 1
			}
		}
		return i
	case ']':
		for i += 2; i < len(runes); i++ {
			if runes[i] == '\x07' {
				return i + 1
			}
			if runes[i] == '\x1b' && i+1 < len(runes) && runes[i+1] == '\\' {
				return i + 2
			}
		}
		return i
	default:
		return i
	}
}

// padRight pads s with spaces to width visible columns.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
