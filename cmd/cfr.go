package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/cfr"
	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/report"
	"github.com/epiparam/epiextract/internal/scorer"
)

var (
	cfrFolder string
	cfrTruth  string
	cfrXLSX   string
)

var cfrCmd = &cobra.Command{
	Use:   "cfr",
	Short: "Run the hospitalized-CFR validation extraction",
	Long:  "Runs the two CFR-specific prompts over each paper and exports a workbook with the raw responses against true values and the fixed-column standard extraction.",
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
		completer, err := llm.NewCompleter(cfg)
		if err != nil {
			return err
		}

		truth := make(map[string]string)
		if cfrTruth != "" {
			records, err := scorer.LoadGroundTruth(cfrTruth)
			if err != nil {
				return err
			}
			for _, r := range records {
				truth[r.DocumentID] = r.TrueValue
			}
		}

		pdfs, err := listPDFs(cfrFolder)
		if err != nil {
			return err
		}

		xlsxPath := cfrXLSX
		if xlsxPath == "" {
			outDir, err := ensureOutputDir("")
			if err != nil {
				return err
			}
			xlsxPath = filepath.Join(outDir, "cfr.xlsx")
		}

		extractor := cfr.NewExtractor(completer)

		var rawRows []report.CFRRawRow
		var standard []map[string]string
		for _, pdf := range pdfs {
			documentID := filepath.Base(pdf)
			trueValue := truth[documentID]
			if trueValue == "" {
				trueValue = model.NA
			}

			doc, err := provider.Extract(ctx, pdf)
			if err != nil {
				logDocumentFailure(documentID, err)
				rawRows = append(rawRows, report.CFRRawRow{
					Paper:     documentID,
					TrueValue: trueValue,
					Response:  "Error processing paper",
				})
				standard = append(standard, map[string]string{"PDF": documentID})
				continue
			}
			tables := strings.Join(doc.Tables, "\n\n")

			raw := extractor.ExtractRaw(ctx, documentID, trueValue, tables, doc.FullText)
			rawRows = append(rawRows, report.CFRRawRow{
				Paper:      raw.DocumentID,
				TrueValue:  raw.TrueValue,
				Response:   raw.Response,
				OverallCFR: raw.OverallCFR,
			})
			standard = append(standard, extractor.ExtractStandard(ctx, documentID, tables, doc.FullText))
		}

		columns := append(append([]string{}, cfr.StandardColumns...), cfr.CalculatedColumn)
		if err := report.WriteCFRWorkbook(xlsxPath, rawRows, standard, columns); err != nil {
			return err
		}

		zap.L().Info("cfr extraction complete",
			zap.Int("documents", len(rawRows)),
			zap.String("workbook", xlsxPath),
		)
		return nil
	},
}

func init() {
	cfrCmd.Flags().StringVar(&cfrFolder, "folder", "", "folder of PDF files (required)")
	cfrCmd.Flags().StringVar(&cfrTruth, "truth", "", "ground truth CSV of true CFR values")
	cfrCmd.Flags().StringVar(&cfrXLSX, "xlsx", "", "workbook output path")
	_ = cfrCmd.MarkFlagRequired("folder")
	rootCmd.AddCommand(cfrCmd)
}
