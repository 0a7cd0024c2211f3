package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailcore application
var rootCmd = &cobra.Command{
	Use:   "mailcore",
	Short: "Email provider credential vault and rule cleanup service",
	Long: `mailcore keeps per-user OAuth credentials for Google and Microsoft email
accounts in an encrypted vault, refreshes them on demand, and exposes an HTTP
API for cleaning up organization rules and running sync jobs across every
provider a user has connected.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailcore version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
