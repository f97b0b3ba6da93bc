package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasmsqt/StreamVox/internal/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input and output devices",
	Long:  `Fetches the device list from the backend once and prints the ids accepted by "run --input" and "run --output".`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd)
		if err != nil {
			return err
		}
		defer svc.close()

		list, err := svc.ctrl.RefreshDevices(context.Background())
		if err != nil {
			return err
		}
		return printDevices(cmd.OutOrStdout(), list)
	},
}

func printDevices(out io.Writer, list device.List) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tDEFAULT")
	for _, kind := range []device.Kind{device.Input, device.Output} {
		for _, d := range list.Of(kind) {
			def := ""
			if d.Default {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, d.ID, d.Label(), def)
		}
	}
	return w.Flush()
}
