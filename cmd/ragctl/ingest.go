package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var withVector bool

	cmd := &cobra.Command{
		Use:   "ingest <file-or-text>...",
		Short: "Extract a knowledge graph from files or literal text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			var failed int
			for _, input := range args {
				if withVector {
					if info, err := os.Stat(input); err == nil && info.Mode().IsRegular() {
						if err := a.IndexSource(ctx, input); err != nil {
							return err
						}
					}
				}

				report, err := a.IngestGraph(ctx, input)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", input, err)
				}
				if err := enc.Encode(report); err != nil {
					return err
				}
				if report.Chunks > 0 && report.Failed == report.Chunks {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d inputs produced no graph data", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withVector, "vector", false, "also add files to the vector index")
	return cmd
}
