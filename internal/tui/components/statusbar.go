package components

import (
	"fmt"

	serialconn "github.com/allbin/go-serial-conn"
	"github.com/allbin/go-serial-conn/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo mirrors the active configuration for display
type ConnectionInfo struct {
	BaudRate       int
	DataBits       int
	StopBits       serialconn.StopBits
	Parity         serialconn.Parity
	ReconnectDelay string
}

// StatusBar renders the bottom status line: connection state, port,
// configuration summary and clock.
type StatusBar struct {
	portPath string
	kind     serialconn.StatusKind
	width    int
	info     *ConnectionInfo
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		kind:     serialconn.StatusDisconnected,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.info = info
}

func (sb *StatusBar) SetStatus(kind serialconn.StatusKind) {
	sb.kind = kind
}

func parityToString(p serialconn.Parity) string {
	switch p {
	case serialconn.ParityEven:
		return "E"
	case serialconn.ParityOdd:
		return "O"
	case serialconn.ParityMark:
		return "M"
	case serialconn.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

func (sb *StatusBar) indicator() string {
	switch sb.kind {
	case serialconn.StatusConnected:
		return lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	case serialconn.StatusReconnecting:
		return lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	default:
		return lipgloss.NewStyle().Foreground(colors.Red).Render("○")
	}
}

func (sb *StatusBar) stateLabel() string {
	switch sb.kind {
	case serialconn.StatusConnected:
		return lipgloss.NewStyle().
			Foreground(colors.Base).
			Background(colors.Green).
			Bold(true).
			Padding(0, 1).
			Render("CONNECTED")
	case serialconn.StatusReconnecting:
		return lipgloss.NewStyle().
			Foreground(colors.Base).
			Background(colors.Yellow).
			Bold(true).
			Padding(0, 1).
			Render("RETRYING")
	default:
		return lipgloss.NewStyle().
			Foreground(colors.Base).
			Background(colors.Red).
			Bold(true).
			Padding(0, 1).
			Render("OFFLINE")
	}
}

// View renders the status bar at the configured width
func (sb *StatusBar) View(timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	var connInfo string
	if sb.info != nil {
		connInfo = fmt.Sprintf("⚡ %d baud %d%s%d retry %s",
			sb.info.BaudRate,
			sb.info.DataBits,
			parityToString(sb.info.Parity),
			sb.info.StopBits,
			sb.info.ReconnectDelay)
	} else {
		connInfo = "⚡ serial"
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(connInfo)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, sb.stateLabel(), port, sb.indicator(), divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	bar := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width)

	return bar.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
