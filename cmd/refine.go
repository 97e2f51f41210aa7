package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/refine"
	"github.com/epiparam/epiextract/internal/scorer"
)

var (
	refineFolder     string
	refineTruth      string
	refineParameter  string
	refineIterations int
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Iteratively refine the extraction prompt for one parameter",
	Long:  "Runs the prompt-refinement loop against a labelled document set: each iteration proposes a candidate prompt from past outcomes, applies it, and appends the scored results to the cumulative table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		provider, err := newTextProvider(st)
		if err != nil {
			return err
		}
		lib, params, err := loadPromptAssets()
		if err != nil {
			return err
		}
		completer, err := llm.NewCompleter(cfg)
		if err != nil {
			return err
		}

		var param model.ParameterSpec
		found := false
		for _, p := range params {
			if p.Name == refineParameter {
				param = p
				found = true
				break
			}
		}
		if !found {
			return eris.Errorf("parameter %q not defined in %s", refineParameter, cfg.Prompts.ParametersPath)
		}

		records, err := scorer.LoadGroundTruth(refineTruth)
		if err != nil {
			return err
		}
		labelled := scorer.NewTruthMap(records).ForParameter(param.Name)
		if len(labelled) == 0 {
			return eris.Errorf("no ground truth for parameter %q in %s", param.Name, refineTruth)
		}
		sort.Slice(labelled, func(i, j int) bool {
			return labelled[i].DocumentID < labelled[j].DocumentID
		})

		docs := make([]refine.Document, 0, len(labelled))
		for _, record := range labelled {
			doc, err := provider.Extract(ctx, filepath.Join(refineFolder, record.DocumentID))
			if err != nil {
				logDocumentFailure(record.DocumentID, err)
				continue
			}
			docs = append(docs, refine.Document{
				DocumentID: record.DocumentID,
				Text:       doc.FullText,
				TrueValue:  record.TrueValue,
			})
		}

		zap.L().Info("refinement started",
			zap.String("parameter", param.Name),
			zap.Int("documents", len(docs)),
			zap.Int("iterations", refineIterations),
		)

		loop := refine.NewLoop(completer, st, lib, chatModelName(), cfg.Scoring.Tolerance)
		state, err := loop.Run(ctx, param, docs, lib.SysPrompt, refineIterations)
		if err != nil {
			return err
		}

		printHistory(state)
		fmt.Printf("\nFinal prompt (iteration %d):\n%s\n", state.Iteration, state.Prompt)
		return nil
	},
}

// printHistory renders the per-iteration metrics as a table.
func printHistory(state *model.PromptState) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "iteration\taccuracy\tprecision\tsensitivity\tspecificity\tf1\tmcc")
	for _, entry := range state.History {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Iteration,
			scorer.Format(entry.Metrics["accuracy"]),
			scorer.Format(entry.Metrics["precision"]),
			scorer.Format(entry.Metrics["sensitivity"]),
			scorer.Format(entry.Metrics["specificity"]),
			scorer.Format(entry.Metrics["f1"]),
			scorer.Format(entry.Metrics["mcc"]),
		)
	}
	_ = w.Flush()
}

func init() {
	refineCmd.Flags().StringVar(&refineFolder, "folder", "", "folder of PDF files (required)")
	refineCmd.Flags().StringVar(&refineTruth, "truth", "", "ground truth CSV (required)")
	refineCmd.Flags().StringVar(&refineParameter, "parameter", "", "parameter name to refine (required)")
	refineCmd.Flags().IntVar(&refineIterations, "iterations", 3, "refinement iterations to run")
	_ = refineCmd.MarkFlagRequired("folder")
	_ = refineCmd.MarkFlagRequired("truth")
	_ = refineCmd.MarkFlagRequired("parameter")
	rootCmd.AddCommand(refineCmd)
}
