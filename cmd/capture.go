/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	serialconn "github.com/allbin/go-serial-conn"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads data from the specified serial port and writes it directly to the
output file. Runs continuously until interrupted (Ctrl+C).

The capture survives device unplugs: when the port goes away the connection
keeps retrying in the background and the capture resumes where it left off
once the device returns. The output file is opened in append mode, allowing
you to resume captures without overwriting existing data.

Example usage:
  serialconn capture /dev/ttyUSB0 data.log
  serialconn capture /dev/ttyUSB0 output.txt --baud 9600
  serialconn capture /dev/ttyUSB0 capture.log --console --verbose`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		outputPath := args[1]

		// Get flags
		baudRate, _ := cmd.Flags().GetInt("baud")
		parity, _ := cmd.Flags().GetString("parity")
		reconnectDelay, _ := cmd.Flags().GetDuration("reconnect-delay")
		showConsole, _ := cmd.Flags().GetBool("console")
		verbose, _ := cmd.Flags().GetBool("verbose")

		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			Level(level).
			With().Timestamp().Logger()

		// Configure connection options
		opts := []serialconn.Option{
			serialconn.WithBaudRate(baudRate),
			serialconn.WithReconnectDelay(reconnectDelay),
			serialconn.WithLogger(log),
		}

		if p, err := parseParity(parity); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		} else {
			opts = append(opts, serialconn.WithParity(p))
		}

		if err := runCapture(portPath, outputPath, showConsole, log, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	// Add flags for serial configuration and capture options
	captureCmd.Flags().IntP("baud", "b", 115200, "Baud rate (default: 115200)")
	captureCmd.Flags().StringP("parity", "p", "none", "Parity: none, even, odd, mark, space (default: none)")
	captureCmd.Flags().DurationP("reconnect-delay", "r", time.Second, "Delay between reconnection attempts (default: 1s)")
	captureCmd.Flags().BoolP("console", "c", false, "Also echo captured data to stdout")
	captureCmd.Flags().BoolP("verbose", "v", false, "Log connection lifecycle events")
}

func runCapture(portPath, outputPath string, showConsole bool, log zerolog.Logger, opts ...serialconn.Option) error {
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	// The writer is shared between the reader goroutine and the flush
	// ticker below
	var mu sync.Mutex
	writer := bufio.NewWriter(out)
	defer func() {
		mu.Lock()
		writer.Flush()
		mu.Unlock()
	}()

	conn, err := serialconn.New(portPath, opts...)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	// The capture handler runs on the reader goroutine; buffered file
	// writes are quick enough to not stall it.
	written := make(chan int, 256)
	conn.OnMessage(func(data []byte) {
		mu.Lock()
		_, err := writer.Write(data)
		mu.Unlock()
		if err != nil {
			log.Error().Err(err).Msg("write to capture file failed")
			return
		}
		if showConsole {
			os.Stdout.Write(data)
		}
		select {
		case written <- len(data):
		default:
		}
	})
	conn.OnStatus(func(status serialconn.Status) {
		log.Info().Stringer("status", status.Kind).Str("device", portPath).Msg("connection status changed")
	})

	if !conn.Connect() {
		log.Warn().Str("device", portPath).Msg("port not available yet, capture starts when it appears")
	}

	log.Info().Str("device", portPath).Str("output", outputPath).Msg("capturing, press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Flush periodically so a crash loses at most a second of data
	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	total := 0
	for {
		select {
		case n := <-written:
			total += n
		case <-flush.C:
			mu.Lock()
			err := writer.Flush()
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("flush failed: %w", err)
			}
		case <-sig:
			log.Info().Int("bytes", total).Msg("capture stopped")
			mu.Lock()
			err := writer.Flush()
			mu.Unlock()
			return err
		}
	}
}
