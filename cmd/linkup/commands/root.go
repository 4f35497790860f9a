package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the configuration file path shared by all commands.
var configPath string

// rootCmd is the top-level cobra command for linkup.
var rootCmd = &cobra.Command{
	Use:   "linkup",
	Short: "Wireless bring-up and one-shot secure session client",
	Long: "linkup associates a wireless station interface, waits for an address, " +
		"performs a single TLS request/response exchange, and exits.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to configuration file (YAML)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
