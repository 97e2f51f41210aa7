package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/scorer"
	"github.com/epiparam/epiextract/internal/store"
)

var (
	evaluateIteration int
	evaluateParameter string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Confusion matrix and metrics for a refinement iteration",
	Long:  "Tallies the confusion matrix and aggregate metrics for one stored iteration, and lists the documents whose outcome flipped since the previous iteration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		iteration := evaluateIteration
		if iteration <= 0 {
			iteration, err = st.MaxIteration(ctx)
			if err != nil {
				return err
			}
			if iteration == 0 {
				return eris.New("no refinement results recorded yet")
			}
		}

		rows, err := st.ListRefinementRows(ctx, store.RefinementFilter{
			ParameterName: evaluateParameter,
			Iteration:     iteration,
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.Errorf("no rows for iteration %d", iteration)
		}

		var counts scorer.Counts
		for _, row := range rows {
			counts.Add(row.Confusion)
		}
		metrics := scorer.Aggregate(counts)

		fmt.Printf("Iteration %d (%d rows)\n\n", iteration, len(rows))
		fmt.Printf("Confusion matrix:\n")
		fmt.Printf("  TP: %d  FN: %d\n", counts.TP, counts.FN)
		fmt.Printf("  FP: %d  TN: %d\n\n", counts.FP, counts.TN)
		fmt.Printf("Sensitivity: %s\n", scorer.Format(metrics.Sensitivity))
		fmt.Printf("Specificity: %s\n", scorer.Format(metrics.Specificity))
		fmt.Printf("Precision:   %s\n", scorer.Format(metrics.Precision))
		fmt.Printf("Accuracy:    %s\n", scorer.Format(metrics.Accuracy))
		fmt.Printf("F1:          %s\n", scorer.Format(metrics.F1))
		fmt.Printf("MCC:         %s\n", scorer.Format(metrics.MCC))

		if iteration > 1 {
			prev, err := st.ListRefinementRows(ctx, store.RefinementFilter{
				ParameterName: evaluateParameter,
				Iteration:     iteration - 1,
			})
			if err != nil {
				return err
			}
			printFlips(prev, rows, iteration)
		}
		return nil
	},
}

func printFlips(prev, curr []model.RefinementRow, iteration int) {
	failToSuccess, successToFail := scorer.IterationDiff(prev, curr)

	fmt.Printf("\nChanges since iteration %d:\n", iteration-1)
	if len(failToSuccess) == 0 && len(successToFail) == 0 {
		fmt.Println("  none")
		return
	}
	for _, doc := range failToSuccess {
		fmt.Printf("  %s: Fail -> Success\n", doc)
	}
	for _, doc := range successToFail {
		fmt.Printf("  %s: Success -> Fail\n", doc)
	}
}

func init() {
	evaluateCmd.Flags().IntVar(&evaluateIteration, "iteration", 0, "iteration to evaluate (default latest)")
	evaluateCmd.Flags().StringVar(&evaluateParameter, "parameter", "", "restrict to one parameter")
	rootCmd.AddCommand(evaluateCmd)
}
