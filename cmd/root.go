/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/go-determ/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "determ",
	Short: "Interactive serial terminal",
	Long: `determ is a terminal for serial devices.

Pick a port from the list on the left, watch its output line by line on the
right and type into the write box below. Several ports can be opened in one
session; switching between them keeps the others open.

Keys:
  tab, ←, →     move between the port list, scrollback and write box
  enter         open the selected port / send the message with a newline
  ctrl+z        send the message followed by 0x1A
  alt+d, alt+r  run the DTR or RTS reset script
  alt+q         quit

Configuration is read from ./determ.yaml or $XDG_CONFIG_HOME/determ/determ.yaml
and DETERM_* environment variables. Flags override both.

Example usage:
  determ
  determ --port /dev/ttyUSB0 --baud 9600
  determ --driver bugst --log-level debug`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetString("port")
		wait := a.start(ctx)

		uiErr := tui.Run(ctx, a.worker, tui.Options{
			BaudRate:   a.cfg.Serial.BaudRate,
			Scrollback: a.cfg.UI.Scrollback,
			Tick:       a.cfg.UI.Tick,
			Port:       port,
			Log:        a.log,
		})
		if errors.Is(uiErr, tea.ErrProgramKilled) && ctx.Err() != nil {
			uiErr = nil
		}
		return a.finish(wait, uiErr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./determ.yaml)")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().String("driver", "native", "Serial driver: native, bugst")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.Flags().StringP("port", "p", "", "Open this port on start")
}
