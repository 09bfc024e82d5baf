package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/transport"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := transport.Ports()
			if err != nil {
				return &bootloader.TransportUnavailableError{Op: "list ports", Err: err}
			}

			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}
