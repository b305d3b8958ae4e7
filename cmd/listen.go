/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	determ "github.com/allbin/go-determ"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Print lines received on a serial port",
	Long: `Open a serial port and print every line it sends until interrupted.

Each line is printed as "[time] port: text". Line endings are stripped.
Lines that are not valid UTF-8 are dropped.

Example usage:
  determ listen /dev/ttyUSB0
  determ listen /dev/ttyUSB0 --baud 9600
  determ listen /dev/ttyACM0 --raw`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		rawMode, _ := cmd.Flags().GetBool("raw")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		wait := a.start(ctx)
		if err := a.open(ctx, args[0]); err != nil {
			return a.finish(wait, err)
		}

		p := linePrinter{out: cmd.OutOrStdout(), timestamps: !noTimestamps, raw: rawMode}
		for {
			select {
			case <-ctx.Done():
				return a.finish(wait, nil)
			case line, ok := <-a.worker.Lines():
				if !ok {
					return a.finish(wait, nil)
				}
				p.print(line)
			case res, ok := <-a.worker.Results():
				if !ok {
					continue
				}
				if !res.OK {
					a.log.Warn("worker reported failure",
						zap.Stringer("kind", res.Kind),
						zap.String("device", res.Device),
						zap.Error(res.Err),
					)
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", res.Err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: text only")
}

type linePrinter struct {
	out        io.Writer
	timestamps bool
	raw        bool
}

func (p linePrinter) print(line determ.Line) {
	switch {
	case p.raw:
		fmt.Fprintln(p.out, line.Text)
	case p.timestamps:
		fmt.Fprintf(p.out, "[%s] %s: %s\n", line.Time.Format("15:04:05.000"), line.Device, line.Text)
	default:
		fmt.Fprintf(p.out, "%s: %s\n", line.Device, line.Text)
	}
}
