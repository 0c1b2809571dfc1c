/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	serialconn "github.com/allbin/go-serial-conn"
	"github.com/allbin/go-serial-conn/internal/tui/components"
	"github.com/allbin/go-serial-conn/internal/tui/keys"
	"github.com/allbin/go-serial-conn/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

This command opens the specified serial port and displays incoming data as it
arrives. The connection is self-healing: if the device disappears or the
driver reports an error, the status bar switches to RETRYING and the stream
resumes automatically once the port comes back. Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Connection status indicators with automatic reconnection
- Configurable baud rate, parity and framing

Example usage:
  serialconn listen /dev/ttyUSB0
  serialconn listen /dev/ttyUSB0 --baud 9600
  serialconn listen /dev/ttyUSB0 --parity even --reconnect-delay 2s`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		// Get flags
		baudRate, _ := cmd.Flags().GetInt("baud")
		dataBits, _ := cmd.Flags().GetInt("data-bits")
		parity, _ := cmd.Flags().GetString("parity")
		reconnectDelay, _ := cmd.Flags().GetDuration("reconnect-delay")

		// Configure connection options
		opts := []serialconn.Option{
			serialconn.WithBaudRate(baudRate),
			serialconn.WithDataBits(dataBits),
			serialconn.WithReconnectDelay(reconnectDelay),
		}

		if p, err := parseParity(parity); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		} else {
			opts = append(opts, serialconn.WithParity(p))
		}

		// Start the TUI
		if err := runListenTUI(portPath, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	// Add flags for serial configuration
	listenCmd.Flags().IntP("baud", "b", 115200, "Baud rate (default: 115200)")
	listenCmd.Flags().Int("data-bits", 8, "Data bits: 5, 6, 7 or 8 (default: 8)")
	listenCmd.Flags().StringP("parity", "p", "none", "Parity: none, even, odd, mark, space (default: none)")
	listenCmd.Flags().DurationP("reconnect-delay", "r", time.Second, "Delay between reconnection attempts (default: 1s)")
}

// statusChangedMsg carries a connection status change into the TUI event loop
type statusChangedMsg struct {
	status serialconn.Status
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	conn      *serialconn.Conn
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
	rawData   []components.DataReceivedMsg
	ready     bool
}

func runListenTUI(portPath string, opts ...serialconn.Option) error {
	conn, err := serialconn.New(portPath, opts...)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	// Create connection info for status bar
	config := conn.Config()
	connInfo := &components.ConnectionInfo{
		BaudRate:       config.BaudRate,
		DataBits:       config.DataBits,
		StopBits:       config.StopBits,
		Parity:         config.Parity,
		ReconnectDelay: config.ReconnectDelay.String(),
	}

	m := &listenModel{
		conn:      conn,
		terminal:  components.NewTerminal(80, 20),
		statusBar: components.NewStatusBar(portPath),
		help:      help.New(),
		keys:      keys.NewTerminalKeys(),
		rawData:   make([]components.DataReceivedMsg, 0),
	}
	m.statusBar.SetConnectionInfo(connInfo)

	// Start the TUI with alt screen and input handling
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Forward connection events into the TUI event loop. Handlers run on
	// the connection's goroutines, so only hand the data to Bubble Tea.
	conn.OnMessage(func(data []byte) {
		p.Send(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Data:      data,
		})
	})
	conn.OnStatus(func(status serialconn.Status) {
		p.Send(statusChangedMsg{status: status})
	})

	// Connect in the background: the handlers feed p.Send, which only
	// drains once the program is running. The first attempt may fail if
	// the device is not plugged in yet; the connection keeps retrying
	// either way.
	go conn.Connect()

	_, err = p.Run()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return nil
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Status bar is single line
		statusBarHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-statusBarHeight)
		m.statusBar.SetWidth(msg.Width)
		m.ready = true

	case statusChangedMsg:
		m.statusBar.SetStatus(msg.status.Kind)
		m.terminal.AddNotice(statusNotice(msg.status))

	case components.DataReceivedMsg:
		// Ensure we're ready to display data even before the first
		// window size message arrives
		if !m.ready {
			m.terminal.SetSize(80, 20)
			m.ready = true
		}

		m.rawData = append(m.rawData, msg)
		m.terminal.AddMessage(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.rawData = make([]components.DataReceivedMsg, 0)
			m.terminal.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
			m.terminal.Refresh(m.rawData)

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()
			m.terminal.Refresh(m.rawData)
		}
	}

	// Update terminal viewport for window resize messages
	var cmd tea.Cmd
	switch msg.(type) {
	case tea.WindowSizeMsg:
		_, cmd = m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// statusNotice renders a status change as a stream line
func statusNotice(status serialconn.Status) string {
	timestamp := lipgloss.NewStyle().Faint(true).
		Render(fmt.Sprintf("[%s]", time.Now().Format("15:04:05.000")))

	var label string
	switch status.Kind {
	case serialconn.StatusConnected:
		label = styles.StatusConnectedStyle.Render("── connected ──")
	case serialconn.StatusReconnecting:
		label = styles.StatusReconnectingStyle.Render("── connection lost, retrying ──")
	default:
		label = styles.StatusDisconnectedStyle.Render("── disconnected ──")
	}
	return fmt.Sprintf("%s %s", timestamp, label)
}

func (m *listenModel) View() string {
	var content string
	if m.ready {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	timestamp := time.Now().Format("15:04:05")
	statusBar := m.statusBar.View(timestamp)

	contentWithBorder := styles.ContentBorderStyle.Render(content)

	// Show help if requested
	if m.help.ShowAll {
		helpView := m.help.View(m.keys)
		helpStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Margin(1, 0)

		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			helpStyle.Render(helpView),
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		statusBar,
	)
}
