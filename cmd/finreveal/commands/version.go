package commands

import (
	"fmt"
	"runtime"

	"github.com/finreveal/site/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit hash and Go version of finreveal.`,
	Run:   runVersion,
}

// runVersion prints the version and build information.
func runVersion(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "finreveal version %s go=%s\n",
		build.String(), runtime.Version())
}
