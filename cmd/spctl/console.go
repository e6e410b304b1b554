package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Read commands from stdin, one per line",
	Long:  "Read commands from stdin, one per line, as for send and cmd (\"send 0,0 9,2\", \"cmd reset\"). Lines starting with # are ignored.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return console(os.Stdin, cmd.OutOrStdout(), run)
	},
}

// console runs every line of in through exec. Errors are reported and the
// loop goes on; only a read error ends it.
func console(in io.Reader, out io.Writer, exec func([]string) error) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		args, err := shlex.Split(text)
		if err != nil {
			fmt.Fprintf(out, "line %d: %v\n", line, err)
			continue
		}
		if err := exec(args); err != nil {
			fmt.Fprintf(out, "line %d: %v\n", line, err)
		}
	}
	return sc.Err()
}
