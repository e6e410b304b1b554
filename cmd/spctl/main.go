// spctl sends coordinate and control frames to a master over its serial
// port.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hsoundplane/soundplane/internal/config"
	"github.com/hsoundplane/soundplane/internal/link"
	"github.com/hsoundplane/soundplane/internal/protocol"
)

var (
	opts = struct {
		port      string
		baud      int
		framing   string
		threshold uint8
		dryRun    bool
	}{}

	rootCmd = &cobra.Command{
		Use:          "spctl",
		Short:        "Drive a Soundplane master from the host",
		Long:         "Encode coordinate and control frames and write them to a Soundplane master serial port.",
		SilenceUsage: true,
	}

	sendCmd = &cobra.Command{
		Use:     "send <col,row>...",
		Short:   "Activate the given piezos (no arguments: all off)",
		Example: "spctl send 0,0 9,2",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(append([]string{"send"}, args...))
		},
	}

	cmdCmd = &cobra.Command{
		Use:     "cmd <off|on|standby|debug|reset> [slave] [mask]",
		Short:   "Send a control command",
		Example: "spctl cmd on 1\nspctl cmd standby 0 0x0F\nspctl cmd reset",
		Args:    cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(append([]string{"cmd"}, args...))
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.port, "port", "p", "/dev/ttyACM0", "serial port of the master")
	pf.IntVarP(&opts.baud, "baud", "b", 115200, "baud rate")
	pf.StringVarP(&opts.framing, "framing", "f", protocol.Marked.String(), "frame format: counted | marked")
	pf.Uint8VarP(&opts.threshold, "threshold", "t", protocol.DefaultCommandThreshold, "command sentinel (first non-coordinate column)")
	pf.BoolVarP(&opts.dryRun, "dry-run", "n", false, "print frames instead of sending them")

	rootCmd.AddCommand(sendCmd, cmdCmd, consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run encodes one command line and delivers it.
func run(args []string) error {
	framing, err := protocol.ParseFraming(opts.framing)
	if err != nil {
		return err
	}
	frame, err := encode(framing, opts.threshold, args)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Printf("% X\n", frame)
		return nil
	}

	port, err := link.OpenPort(config.SerialConfig{
		Port:      opts.port,
		Baud:      opts.baud,
		TimeoutMs: 100,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	return write(port, frame)
}

func write(w io.Writer, frame []byte) error {
	n, err := w.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	return nil
}
