// Package cli implements pushctl, the operator tool for the push service.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultServer = "http://localhost:8090"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pushctl",
		Short:         "Operate the TerangaHub push service",
		Long:          "pushctl generates VAPID keys, registers device subscriptions and sends test notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newVAPIDCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newSubscribeCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
