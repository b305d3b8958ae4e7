/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	determ "github.com/allbin/go-determ"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Write one payload to a device and exit",
	Long: `Open a device, write a single payload through the serial worker and
report how many bytes went out.

The payload comes from stdin when no data argument is given. Text gets a
trailing newline unless --newline=false. Hex payloads are written as decoded.

Examples:
  determ send /dev/ttyUSB0 "AT+CSQ"
  determ send /dev/ttyUSB0 --hex "48 65 6c 6c 6f"
  echo "reboot" | determ send /dev/ttyACM0`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var data string
		if len(args) == 2 {
			data = args[1]
		} else {
			in, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			data = strings.TrimRight(string(in), "\r\n")
		}

		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				return fmt.Errorf("invalid hex data: %w", err)
			}
			data = decoded
		} else if addNewline {
			data += "\n"
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := withTimeout(cmd.Context(), timeout)
		defer cancel()

		wait := a.start(ctx)
		if err := a.open(ctx, args[0]); err != nil {
			return a.finish(wait, err)
		}

		if err := a.worker.Send(determ.WriteRaw{Text: data}); err != nil {
			return a.finish(wait, err)
		}
		a.worker.Cancel().Set()

		res, err := a.await(ctx, determ.ResultWrite)
		if err == nil && !res.OK {
			err = res.Err
		}
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %d bytes\n", args[0], len(data))
		}
		return a.finish(wait, err)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", true, "append \\n to text payloads")
	sendCmd.Flags().BoolP("hex", "x", false, "decode data as hex digits, whitespace allowed")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "give up if open and write take longer")
}

// parseHexString decodes hex digits, ignoring whitespace
func parseHexString(s string) (string, error) {
	raw, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	return string(raw), err
}
