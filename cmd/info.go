/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	serialconn "github.com/allbin/go-serial-conn"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialconn info /dev/ttyUSB0
  serialconn info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers and other
USB-specific metadata extracted from sysfs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		info, err := serialconn.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(renderPortInfo(info))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// renderPortInfo formats one port as a styled key/value block. Empty
// fields and the whole USB section are omitted when sysfs had nothing.
func renderPortInfo(info *serialconn.PortInfo) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("240"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Width(14)

	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(label), value))
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("⚡ %s", info.Path)) + "\n\n")
	row("Name", info.Name)
	row("Type", getPortType(info.Name))
	row("Description", info.Description)

	if info.VendorID != "" || info.ProductID != "" {
		b.WriteString("\n" + sectionStyle.Render("USB Device") + "\n")
		if info.VendorID != "" && info.ProductID != "" {
			row("USB ID", fmt.Sprintf("%s:%s", info.VendorID, info.ProductID))
		} else {
			row("Vendor ID", info.VendorID)
			row("Product ID", info.ProductID)
		}
		row("Serial", info.SerialNumber)
		row("Manufacturer", info.Manufacturer)
		row("Product", info.Product)
	}

	return b.String()
}
