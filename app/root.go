// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-altrepo-api",
	Short: "GoAltRepo-API serves the package repository metadata REST API",
	Long: `GoAltRepo-API serves the package repository metadata REST API,
including token-based authentication against local, LDAP and Keycloak
identity backends.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
