package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/hexfile"
	"github.com/moffa90/go-dsboot/internal/config"
)

type globalOptions struct {
	cfg     *config.Config
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "dsboot",
		Short:         "Flash dsPIC33/PIC24 firmware through the serial bootloader",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, opts.verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newFlashCmd(opts),
		newDumpCmd(opts),
		newPortsCmd(),
	)
	return cmd
}

// loadBundle reads a firmware file and patches it for the bootloader.
func loadBundle(path, id string, layout firmware.Layout) (*firmware.Bundle, error) {
	identity, err := firmware.ParseIdentity(id)
	if err != nil {
		return nil, &bootloader.ConfigError{Field: "identity", Err: err}
	}

	img, err := hexfile.Parse(path)
	if err != nil {
		return nil, &bootloader.ConfigError{Field: "image", Err: err}
	}

	bundle, err := firmware.Build(img, identity, layout)
	if err != nil {
		return nil, &bootloader.ConfigError{Field: "image", Err: err}
	}
	return bundle, nil
}

// writeOutput runs fn against path, or against stdout when path is "-".
func writeOutput(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "-" {
		return fn(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
