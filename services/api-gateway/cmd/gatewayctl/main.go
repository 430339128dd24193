package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Operator tooling for the murmur API gateway",
	Long: `gatewayctl inspects gateway route tables and mints development credentials.

Examples:
  # Route tables
  gatewayctl routes validate -f deploy/routes.yaml
  gatewayctl routes match POST /v1/posts/create-post

  # Local development
  JWT_SECRET=... gatewayctl token mint --user usr_01H... --username alice`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(tokenCmd)
}
