// Command mjgen produces a synthetic span and event workload and
// writes it as JSON lines, to stdout or to Kafka.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/xoplog/microjson/mjutil/mjversion"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.3.0"

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "mjgen",
		Short:         "Generate span and event traffic as JSON lines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mjgen version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := mjversion.Parse("mjgen " + version)
			if err == nil && src.Version == nil {
				err = errors.New("no version")
			}
			if err != nil {
				return errors.Wrapf(err, "bad build version %q", version)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), src)
			return err
		},
	}
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mjgen:", err)
		os.Exit(1)
	}
}
