package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <source>...",
		Short: "Remove everything derived from the named sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			for _, source := range args {
				if err := a.RemoveSource(ctx, source); err != nil {
					return fmt.Errorf("clear %s: %w", source, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", source)
			}
			return nil
		},
	}
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Create the entity full-text index if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)
			return a.Graph.EnsureIndex(ctx)
		},
	}
}
