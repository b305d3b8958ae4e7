/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"

	determ "github.com/allbin/go-determ"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	infoKeyStyle   = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("244"))
	infoTitleStyle = lipgloss.NewStyle().Bold(true)
)

var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Describe one serial device",
	Long: `Print what the enumerator knows about a serial device: its kind,
description and, for USB adapters, vendor id, product id and serial number.

Example:
  determ info /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := determ.GetPortInfo(args[0])
		if err != nil {
			return fmt.Errorf("inspect %s: %w", args[0], err)
		}
		printInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, info *determ.PortInfo) {
	row := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintln(w, infoKeyStyle.Render(key)+value)
	}

	fmt.Fprintln(w, infoTitleStyle.Render(info.Path))
	row("name", info.Name)
	row("kind", string(info.Kind))
	row("description", info.Description)
	row("vendor", info.VendorID)
	row("product", info.ProductID)
	row("serial", info.SerialNumber)
}
