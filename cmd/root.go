package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtruelegend/keymint/cmd/keys"
	"github.com/xtruelegend/keymint/cmd/serve"
)

const (
	Version = "1.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "keymint",
		Short: "license key storefront",
		Long: fmt.Sprintf(`keymint (v%s)

A license key storefront: sells keys from a finite pool with tiered
launch pricing, records purchases in a key-value backend and manages
the issued keys over their whole lifecycle.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of keymint",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("keymint v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(keys.KeyCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
