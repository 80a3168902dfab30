package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func historyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent search queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer a.Close()
			printHistory(cmd.OutOrStdout(), a.history.Load(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent search queries",
		Args:  cobra.NoArgs,
		RunE:  cmd.RunE,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm [query]",
		Short: "Remove one query from the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer a.Close()
			printHistory(cmd.OutOrStdout(), a.history.Remove(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every recent query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer a.Close()
			a.history.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	})
	return cmd
}

func printHistory(w io.Writer, items []string) {
	if len(items) == 0 {
		_, _ = dimColor.Fprintln(w, "no recent searches")
		return
	}
	for i, q := range items {
		fmt.Fprintf(w, "%2d. %s\n", i+1, q)
	}
}
