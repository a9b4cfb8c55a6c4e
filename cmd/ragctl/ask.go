package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/query"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		historyFile string
		system      string
		noRAG       bool
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the knowledge graph and the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := readHistory(historyFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			qt := query.NewQueryTrace()
			if trace {
				ctx = query.WithTracer(ctx, qt)
			}

			events, _, err := a.StreamAnswer(ctx, app.ChatRequest{
				System:   system,
				History:  history,
				Question: strings.Join(args, " "),
				UseRAG:   !noRAG,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for ev := range events {
				if ev.Type == ai.StreamEventError {
					return ev.Err
				}
				fmt.Fprint(out, ev.Content)
			}
			fmt.Fprintln(out)

			if trace {
				enc := json.NewEncoder(cmd.ErrOrStderr())
				enc.SetIndent("", "  ")
				return enc.Encode(qt.Snapshot())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&historyFile, "history-file", "", `JSON file with [{"human": ..., "assistant": ...}] turns`)
	cmd.Flags().StringVar(&system, "system", "", "system prompt, defaults to SYSTEM_PROMPT")
	cmd.Flags().BoolVar(&noRAG, "no-rag", false, "answer without retrieval")
	cmd.Flags().BoolVar(&trace, "trace", false, "print what retrieval looked at to stderr")
	return cmd
}

func readHistory(path string) ([]common.ChatTurn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var history []common.ChatTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("invalid history file %s: %w", path, err)
	}
	return history, nil
}
