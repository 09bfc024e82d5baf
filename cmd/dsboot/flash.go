package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/internal/config"
	"github.com/moffa90/go-dsboot/protocol"
	"github.com/moffa90/go-dsboot/transport"
	"github.com/moffa90/go-dsboot/transport/sim"
)

type flashOptions struct {
	id          string
	port        string
	baud        int
	resetLine   string
	retries     int
	ackTimeout  time.Duration
	dumpImage   string
	dumpPackets string
	simulate    bool
}

func newFlashCmd(g *globalOptions) *cobra.Command {
	o := &flashOptions{}

	cmd := &cobra.Command{
		Use:   "flash <firmware.hex>",
		Short: "Program a device through its serial bootloader",
		Long: "Reads an Intel HEX image, redirects its reset vector to the bootloader,\n" +
			"stamps the device identity into the configuration block and streams the\n" +
			"result to the device.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlash(cmd, g, o, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.id, "id", "", "four-digit device identity")
	f.StringVarP(&o.port, "port", "p", "", "serial port (DSBOOT_PORT)")
	f.IntVar(&o.baud, "baud", protocol.BaudRate, "baud rate (DSBOOT_BAUD)")
	f.StringVar(&o.resetLine, "reset-line", "dtr", "modem line wired to reset: dtr or rts (DSBOOT_RESET_LINE)")
	f.IntVar(&o.retries, "retries", 3, "session restarts after a failed attempt (DSBOOT_RETRIES)")
	f.DurationVar(&o.ackTimeout, "ack-timeout", 0, "bound on each packet acknowledgement, 0 waits forever (DSBOOT_ACK_TIMEOUT)")
	f.StringVar(&o.dumpImage, "dump-image", "", "write the patched image dump to FILE before flashing (- for stdout)")
	f.StringVar(&o.dumpPackets, "dump-packets", "", "write the packet dump to FILE before flashing (- for stdout)")
	f.BoolVar(&o.simulate, "simulate", false, "flash an in-memory simulated bootloader instead of a serial port")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// apply overrides environment values with the flags set on the command line.
func (o *flashOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("baud") {
		cfg.Baud = o.baud
	}
	if flags.Changed("reset-line") {
		cfg.ResetLine = o.resetLine
	}
	if flags.Changed("retries") {
		cfg.Retries = o.retries
	}
	if flags.Changed("ack-timeout") {
		cfg.AckTimeout = o.ackTimeout
	}
}

func runFlash(cmd *cobra.Command, g *globalOptions, o *flashOptions, path string) error {
	cfg := *g.cfg
	o.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return &bootloader.ConfigError{Field: "config", Err: err}
	}

	bundle, err := loadBundle(path, o.id, cfg.Layout())
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file":             path,
		"identity":         bundle.Identity.String(),
		"original_entry":   fmt.Sprintf("0x%06X", bundle.OriginalEntry()),
		"bootloader_entry": fmt.Sprintf("0x%06X", cfg.Layout().BootloaderEntry),
	}).Info("firmware loaded")

	if err := writeDumps(cmd.OutOrStdout(), bundle, o.dumpImage, o.dumpPackets); err != nil {
		return err
	}

	link, device, err := openLink(&cfg, o.simulate)
	if err != nil {
		return err
	}

	sess := bootloader.NewSession(link,
		bootloader.WithLogger(newLogger("bootloader")),
		bootloader.WithRetries(cfg.Retries),
		bootloader.WithAckTimeout(cfg.AckTimeout),
		bootloader.WithStateCallback(func(from, to bootloader.State) {
			log.WithField("state", to.String()).Info("session state")
		}),
		bootloader.WithProgressCallback(func(p bootloader.Progress) {
			if p.State != bootloader.StateStreaming {
				return
			}
			log.WithFields(log.Fields{
				"attempt": p.Attempt,
				"packet":  fmt.Sprintf("%d/%d", p.CurrentPacket, p.TotalPackets),
				"address": fmt.Sprintf("0x%06X", p.Address),
				"percent": fmt.Sprintf("%.1f", p.Percentage),
			}).Info("progress")
		}),
	)

	err = sess.Run(cmd.Context(), bundle)

	if device != nil {
		stats := device.Stats()
		log.WithFields(log.Fields{
			"resets":     stats.Resets,
			"probes":     stats.Probes,
			"packets":    stats.Packets,
			"written":    stats.Written,
			"terminated": stats.Terminated,
		}).Info("simulated device")
	}

	if err != nil {
		return err
	}

	log.WithField("identity", bundle.Identity.String()).Info("device programmed")
	return nil
}

func writeDumps(stdout io.Writer, bundle *firmware.Bundle, imagePath, packetsPath string) error {
	if imagePath != "" {
		err := writeOutput(imagePath, stdout, func(w io.Writer) error {
			return firmware.WriteImageDump(w, bundle, protocol.ChunkSize)
		})
		if err != nil {
			return err
		}
	}

	if packetsPath != "" {
		seq, err := bootloader.BuildSequence(bundle)
		if err != nil {
			return err
		}
		err = writeOutput(packetsPath, stdout, func(w io.Writer) error {
			return protocol.WritePacketDump(w, seq.Packets)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// openLink opens the serial port, or a simulated device when simulate is set.
// The device is returned separately so its counters can be reported.
func openLink(cfg *config.Config, simulate bool) (bootloader.Link, *sim.Device, error) {
	if simulate {
		d := sim.New()
		return d, d, nil
	}

	if cfg.Port == "" {
		return nil, nil, &bootloader.ConfigError{
			Field: "port",
			Err:   errors.New("no serial port given (use --port or DSBOOT_PORT)"),
		}
	}

	link, err := transport.OpenSerial(cfg.Serial())
	if err != nil {
		return nil, nil, &bootloader.TransportUnavailableError{Op: "open " + cfg.Port, Err: err}
	}

	log.WithFields(log.Fields{
		"port":       cfg.Port,
		"baud":       cfg.Baud,
		"reset_line": cfg.ResetLine,
	}).Debug("serial port open")
	return link, nil, nil
}
