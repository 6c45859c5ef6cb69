package hgdb

import (
	"github.com/spf13/cobra"
)

// HgdbCmd groups every hgdb debug-server subcommand.
var HgdbCmd = &cobra.Command{
	Use:   "hgdb",
	Short: "Run an hgdb-compatible hardware debug server",
}

func init() {
	HgdbCmd.AddCommand(ReplayCmd)
}
