// Command sophctl is the operator CLI for the Soph access gateway:
// minting and inspecting tokens, managing promo codes, and querying
// entitlements directly against the gateway database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"soph-gateway/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	dbPath string
	secret string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "sophctl",
		Short:         "Operator CLI for the Soph access gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			_ = config.LoadDotEnv(".env")
			if flags.dbPath == "" {
				flags.dbPath = os.Getenv("DB_PATH")
				if flags.dbPath == "" {
					flags.dbPath = "soph_gateway.sqlite"
				}
			}
			if flags.secret == "" {
				flags.secret = os.Getenv("JWT_SECRET")
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", "", "path to the gateway SQLite database")
	pf.StringVar(&flags.secret, "secret", "", "token signing secret (defaults to JWT_SECRET)")

	root.AddCommand(newTokenCmd(flags))
	root.AddCommand(newCodeCmd(flags))
	root.AddCommand(newEntitlementCmd(flags))
	return root
}
