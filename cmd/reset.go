/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	determ "github.com/allbin/go-determ"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port>",
	Short: "Reset a device by toggling DTR or RTS",
	Long: `Run the DTR or RTS reset script on a serial port once.

The scripts toggle the modem control lines in a fixed sequence with short
pauses, which resets most microcontroller boards or puts them in their
bootloader. They can be replaced with scripts.dtr and scripts.rts in the
config file.

Examples:
  determ reset /dev/ttyUSB0                # DTR reset
  determ reset /dev/ttyUSB0 --signal rts   # RTS reset`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		signal, _ := cmd.Flags().GetString("signal")
		level, _ := cmd.Flags().GetBool("level")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var command determ.Command
		switch strings.ToLower(signal) {
		case "dtr":
			command = determ.WriteDTR{Level: level}
		case "rts":
			command = determ.WriteRTS{Level: level}
		default:
			return fmt.Errorf("unknown signal %q (want dtr or rts)", signal)
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

		started := time.Now()
		if err := a.worker.Send(command); err != nil {
			return a.finish(wait, err)
		}
		a.worker.Cancel().Set()

		res, err := a.await(ctx, determ.ResultSignal)
		if err == nil && !res.OK {
			err = res.Err
		}
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset on %s done in %s\n",
				res.Signal, args[0], time.Since(started).Round(time.Millisecond))
		}
		return a.finish(wait, err)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("signal", "s", "dtr", "Control line to reset with: dtr, rts")
	resetCmd.Flags().Bool("level", true, "Level reported with the reset")
	resetCmd.Flags().DurationP("timeout", "t", 10*time.Second, "Timeout for opening the port and running the script")
}
