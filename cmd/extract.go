package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/extraction"
	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/report"
)

var (
	extractFolder       string
	extractOutput       string
	extractExplanations bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the two-stage extraction pipeline over a folder of PDFs",
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

		keepExplanations := extractExplanations || cfg.Run.Explanations
		engine := extraction.NewEngine(completer, lib, params,
			extraction.WithMaxDocChars(cfg.Run.MaxDocChars),
			extraction.WithExplanations(keepExplanations),
		)

		pdfs, err := listPDFs(extractFolder)
		if err != nil {
			return err
		}
		outDir, err := ensureOutputDir(extractOutput)
		if err != nil {
			return err
		}

		zap.L().Info("extraction started",
			zap.Int("documents", len(pdfs)),
			zap.Int("parameters", len(params)),
		)

		rs := report.NewResultSet(params)
		for _, pdf := range pdfs {
			doc, err := provider.Extract(ctx, pdf)
			if err != nil {
				logDocumentFailure(filepath.Base(pdf), err)
				rs.Append(engine.NotFoundResults(filepath.Base(pdf), "text extraction failed")...)
				continue
			}
			rs.Append(engine.Extract(ctx, doc)...)
		}

		if err := rs.WriteCSV(filepath.Join(outDir, "results.csv")); err != nil {
			return err
		}
		if err := rs.WriteWideCSV(filepath.Join(outDir, "results_wide.csv")); err != nil {
			return err
		}
		if keepExplanations {
			if err := rs.WriteExplanations(filepath.Join(outDir, "explanations.txt")); err != nil {
				return err
			}
		}

		zap.L().Info("extraction complete",
			zap.Int("documents", len(rs.Documents())),
			zap.Int("rows", len(rs.Rows())),
			zap.String("output", outDir),
		)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFolder, "folder", "", "folder of PDF files (required)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "output directory")
	extractCmd.Flags().BoolVar(&extractExplanations, "explanations", false, "keep raw discovery responses")
	_ = extractCmd.MarkFlagRequired("folder")
	rootCmd.AddCommand(extractCmd)
}
