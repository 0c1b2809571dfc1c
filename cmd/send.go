/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	serialconn "github.com/allbin/go-serial-conn"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port with configurable options.

This command sends data to the specified serial port. Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialconn send /dev/ttyUSB0
- Interactive mode: serialconn send /dev/ttyUSB0 (prompts for input)

Features include:
- Multiple input methods (argument, stdin, interactive)
- Configurable baud rate, parity and framing
- Automatic line endings (--newline flag)
- Hex input support (--hex flag)
- Optional wait for the device to appear (--wait flag)
- Connection status feedback with styled output

Example usage:
  serialconn send "Hello World" /dev/ttyUSB0
  serialconn send "AT+GMR" /dev/ttyUSB0 --newline
  echo "test" | serialconn send /dev/ttyUSB0
  serialconn send "ping" /dev/ttyUSB0 --wait 30s  # Retry until plugged in`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		var portPath string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portPath = args[0]
			// Check if we have stdin data
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				// No pipe input, use interactive mode
				data = promptForData()
			} else {
				// Read from stdin
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		// Get flags
		baudRate, _ := cmd.Flags().GetInt("baud")
		parity, _ := cmd.Flags().GetString("parity")
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		wait, _ := cmd.Flags().GetDuration("wait")

		// Configure connection options
		opts := []serialconn.Option{
			serialconn.WithBaudRate(baudRate),
			serialconn.WithWriteTimeout(timeout),
		}

		if p, err := parseParity(parity); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		} else {
			opts = append(opts, serialconn.WithParity(p))
		}

		// Process data based on flags
		if hexMode {
			processedData, err := parseHexString(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			data = processedData
		}

		if addNewline && !hexMode {
			data += "\n"
		}

		// Send the data
		if err := sendData(portPath, data, wait, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	// Add flags for serial configuration and send options
	sendCmd.Flags().IntP("baud", "b", 115200, "Baud rate (default: 115200)")
	sendCmd.Flags().StringP("parity", "p", "none", "Parity: none, even, odd, mark, space (default: none)")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data (default: 5s)")
	sendCmd.Flags().DurationP("wait", "w", 0, "Keep retrying the connection for this long before giving up")
}

func parseParity(s string) (serialconn.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serialconn.ParityNone, nil
	case "even", "e":
		return serialconn.ParityEven, nil
	case "odd", "o":
		return serialconn.ParityOdd, nil
	case "mark", "m":
		return serialconn.ParityMark, nil
	case "space", "s":
		return serialconn.ParitySpace, nil
	default:
		return serialconn.ParityNone, fmt.Errorf("unknown parity %q", s)
	}
}

func promptForData() string {
	// Styled prompt
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexString(hexStr string) (string, error) {
	// Remove common hex prefixes and whitespace
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return "", fmt.Errorf("hex string must have even length")
	}

	var result strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		hexByte := hexStr[i : i+2]
		var b byte
		if _, err := fmt.Sscanf(hexByte, "%x", &b); err != nil {
			return "", fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		result.WriteByte(b)
	}

	return result.String(), nil
}

func sendData(portPath, data string, wait time.Duration, opts ...serialconn.Option) error {
	// Styled output
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	conn, err := serialconn.New(portPath, opts...)
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer conn.Disconnect()

	// Show connection attempt
	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	if !conn.Connect() {
		if wait <= 0 {
			return fmt.Errorf("%s failed to open %s", errorStyle.Render("✗"), portPath)
		}

		// The connection keeps retrying in the background, poll until it
		// comes up or the wait budget runs out.
		fmt.Printf("%s Waiting up to %s for the device...\n", infoStyle.Render("⏳"), wait)
		deadline := time.Now().Add(wait)
		for !conn.IsConnected() {
			if time.Now().After(deadline) {
				return fmt.Errorf("%s device did not appear within %s", errorStyle.Render("✗"), wait)
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("%s Connected successfully\n", successStyle.Render("✓"))

	// Send data
	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	if !conn.Send([]byte(data)) {
		return fmt.Errorf("%s failed to send data", errorStyle.Render("✗"))
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), len(data))

	// Show data preview (first 50 chars)
	preview := data
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	// Replace non-printable characters for display
	preview = strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, preview)

	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}
