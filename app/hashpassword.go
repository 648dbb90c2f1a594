package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(hashPasswordCmd)
}

// hashPasswordCmd produces the Argon2id hash to put into auth.AdminPasswordHash.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Hash a password for the admin account config entry",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		fmt.Println(auth.HashPassword(args[0]))
	},
}
