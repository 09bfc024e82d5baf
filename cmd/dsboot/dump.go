package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/hexfile"
)

type dumpOptions struct {
	id      string
	image   string
	packets string
	hex     string
}

func newDumpCmd(g *globalOptions) *cobra.Command {
	o := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump <firmware.hex>",
		Short: "Write the patched image and packet stream without a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, g, o, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.id, "id", "", "four-digit device identity")
	f.StringVar(&o.image, "image", "", "write the image dump to FILE (- for stdout)")
	f.StringVar(&o.packets, "packets", "", "write the packet dump to FILE (- for stdout)")
	f.StringVar(&o.hex, "hex", "", "write the programmed image as Intel HEX to FILE (- for stdout)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runDump(cmd *cobra.Command, g *globalOptions, o *dumpOptions, path string) error {
	if err := g.cfg.Validate(); err != nil {
		return &bootloader.ConfigError{Field: "config", Err: err}
	}

	bundle, err := loadBundle(path, o.id, g.cfg.Layout())
	if err != nil {
		return err
	}

	image := o.image
	if image == "" && o.packets == "" && o.hex == "" {
		image = "-"
	}

	out := cmd.OutOrStdout()
	if err := writeDumps(out, bundle, image, o.packets); err != nil {
		return err
	}

	if o.hex != "" {
		programmed, err := bundle.Programmed()
		if err != nil {
			return err
		}
		return writeOutput(o.hex, out, func(w io.Writer) error {
			return hexfile.Write(w, programmed, 16)
		})
	}
	return nil
}
