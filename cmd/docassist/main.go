package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docassist/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "docassist",
		Short:         "docassist - natural-language search and chat for the document archive",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.env, "env", "e", "", "environment: local, dev, prod (default $ENV or local)")
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default config/<env>.yaml)")
	root.PersistentFlags().StringVar(&flags.store, "store", "", "history store override: memory, file, redis")

	root.AddCommand(serveCmd(&flags))
	root.AddCommand(searchCmd(&flags))
	root.AddCommand(chatCmd(&flags))
	root.AddCommand(historyCmd(&flags))
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docassist %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
