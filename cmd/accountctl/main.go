package main

import (
	"fmt"
	"os"

	"account_agent/cmd/accountctl/commands"

	"github.com/spf13/cobra"
)

func main() {
	var addr string
	rootCmd := &cobra.Command{
		Use:   "accountctl",
		Short: "Command line client for the account agent",
		Long:  "Sign in, manage the profile and inspect queued writes through a running account agent",
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", commands.DefaultAddr(), "Base URL of the account agent (env ACCOUNT_AGENT_ADDR)")

	client := func() *commands.Client { return commands.NewClient(addr) }
	rootCmd.AddCommand(
		commands.NewSignupCmd(client),
		commands.NewLoginCmd(client),
		commands.NewLogoutCmd(client),
		commands.NewWhoamiCmd(client),
		commands.NewResetPasswordCmd(client),
		commands.NewProfileCmd(client),
		commands.NewSyncCmd(client),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
