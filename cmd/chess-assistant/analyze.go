package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/chess-assistant-bot/internal/adapter/chesspresenter"
	"github.com/park285/chess-assistant-bot/internal/chess"
)

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	analyzeFEN    string
	analyzeDepth  int
	analyzeTimeMS int
	analyzeTrace  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one engine analysis and print the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.close(context.Background())

		res := rt.deps.Analyzer.Analyze(ctx, chess.AnalysisRequest{
			FEN:       analyzeFEN,
			Depth:     analyzeDepth,
			TimeLimit: time.Duration(analyzeTimeMS) * time.Millisecond,
		})
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, chesspresenter.NewFormatter(rt.deps.Messages).Analysis(chesspresenter.ToDTOAnalysis(&res)))
		if analyzeTrace && res.Trace != "" {
			fmt.Fprintln(out, "\n--- engine output ---")
			fmt.Fprintln(out, res.Trace)
		}
		if !res.Success {
			return fmt.Errorf("analysis %s", res.Outcome)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeFEN, "fen", startingFEN, "position to analyze")
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "search depth 1-20 (0 uses ENGINE_DEFAULT_DEPTH)")
	analyzeCmd.Flags().IntVar(&analyzeTimeMS, "time", 0, "time limit in ms (0 uses ENGINE_TIME_LIMIT_MS)")
	analyzeCmd.Flags().BoolVar(&analyzeTrace, "trace", false, "print the raw engine output")
}
