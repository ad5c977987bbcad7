// Command teerotate copies its input to a rotating set of log files.
//
// Usage:
//
//	some-server 2>&1 | teerotate --prefix /var/log/app --file-size 50m --file-count 5
//
// Exit codes:
//   - 0: end of input reached
//   - 1: an output file or the input could not be opened, or invalid flags
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const progname = "teerotate"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           progname,
		Usage:          "copy stdin or a file to size-rotated log files",
		Flags:          flags(),
		Action:         action,
		ExitErrHandler: exitErrHandler,
	}
}

// exitErrHandler prints err once and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", progname, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", progname, err)
	os.Exit(1)
}
