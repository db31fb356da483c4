package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/happy-observatory/observatory/internal/interfaces/cli/hashpassword"
	"github.com/happy-observatory/observatory/internal/interfaces/cli/server"
	"github.com/happy-observatory/observatory/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "observatory",
		Short:   "Observatory - dashboard API with rate limiting and token revocation",
		Long:    `Observatory serves the dashboard API behind per-client rate limits and JWT sessions that can be revoked before they expire.`,
		Version: version.String(),
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		hashpassword.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
