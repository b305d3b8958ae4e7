/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	determ "github.com/allbin/go-determ"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the serial devices determ can open",
	Long: `Scan the system for serial devices and print one path per line.

Only devices that can carry data are shown. Virtual consoles and
pseudo-terminals are skipped. Use --filter to narrow the scan to one
kind of device and --table for kind, description and USB ids.

Examples:
  determ list
  determ list --filter usb --table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		asTable, _ := cmd.Flags().GetBool("table")

		kinds, err := parseKinds(filter)
		if err != nil {
			return err
		}

		ports, err := determ.ListPortsOfKind(kinds...)
		if err != nil {
			return fmt.Errorf("scan serial devices: %w", err)
		}

		switch {
		case len(ports) == 0 && filter != "":
			fmt.Fprintf(cmd.OutOrStdout(), "no %s devices\n", filter)
		case len(ports) == 0:
			fmt.Fprintln(cmd.OutOrStdout(), "no serial devices")
		case asTable:
			renderTable(cmd.OutOrStdout(), ports)
		default:
			for _, port := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), port)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "only show usb, standard or arm devices")
	listCmd.Flags().BoolP("table", "t", false, "print kind, description and USB ids as a table")
}

// parseKinds turns the --filter value into port kinds. Empty and "all" select every kind.
func parseKinds(filterType string) ([]determ.PortKind, error) {
	switch strings.ToLower(filterType) {
	case "", "all":
		return nil, nil
	case "usb":
		return []determ.PortKind{determ.KindUSB}, nil
	case "standard":
		return []determ.PortKind{determ.KindStandard}, nil
	case "arm":
		return []determ.PortKind{determ.KindARM}, nil
	default:
		return nil, fmt.Errorf("unknown filter %q, expected usb, standard, arm or all", filterType)
	}
}

// renderTable prints the ports with kind, description and USB ids
func renderTable(w io.Writer, ports []string) {
	rows := make([][]string, 0, len(ports))
	for _, port := range ports {
		info, err := determ.GetPortInfo(port)
		if err != nil {
			rows = append(rows, []string{port, "?", fmt.Sprintf("error: %v", err), ""})
			continue
		}

		var usb string
		if info.VendorID != "" {
			usb = info.VendorID + ":" + info.ProductID
		}
		rows = append(rows, []string{info.Path, string(info.Kind), info.Description, usb})
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Port", "Kind", "Description", "USB").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())
}
