// Command book walks the public booking flow against a running backend.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every subcommand.
type RootOptions struct {
	APIURL   string
	BranchID string
	Timeout  time.Duration
	Verbose  bool
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:           "book",
		Short:         "Book an appointment through the public booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "http://localhost:8080", "base URL of the booking backend")
	cmd.PersistentFlags().StringVar(&opts.BranchID, "branch", "", "branch id")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "timeout of each backend call")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log backend errors")
	cmd.MarkPersistentFlagRequired("branch")

	cmd.AddCommand(newSlotsCommand(opts))
	cmd.AddCommand(newMonthCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "book:", err)
		os.Exit(1)
	}
}
