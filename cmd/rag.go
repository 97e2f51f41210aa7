package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/extraction"
	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/rag"
	"github.com/epiparam/epiextract/internal/report"
)

var (
	ragFolder       string
	ragOutput       string
	ragTopK         int
	ragExplanations bool
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Run the retrieval-augmented extraction pipeline",
	Long:  "Embeds every document's sections into an in-memory index, then extracts each parameter from its top-k most similar chunks instead of the full text.",
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
		embedder, err := llm.NewEmbedder(cfg)
		if err != nil {
			return err
		}

		topK := ragTopK
		if topK <= 0 {
			topK = cfg.Run.RAGTopK
		}
		keepExplanations := ragExplanations || cfg.Run.Explanations
		engine := extraction.NewEngine(completer, lib, params,
			extraction.WithMaxDocChars(cfg.Run.MaxDocChars),
			extraction.WithExplanations(keepExplanations),
		)

		pdfs, err := listPDFs(ragFolder)
		if err != nil {
			return err
		}
		outDir, err := ensureOutputDir(ragOutput)
		if err != nil {
			return err
		}

		// Index first: every document's sections go in before any query runs.
		index := rag.New(embedder)
		failed := make(map[string]error)
		var docIDs []string
		for _, pdf := range pdfs {
			documentID := filepath.Base(pdf)
			docIDs = append(docIDs, documentID)

			doc, err := provider.Extract(ctx, pdf)
			if err != nil {
				failed[documentID] = err
				continue
			}
			if err := index.Add(ctx, documentID, doc.SectionChunks()); err != nil {
				failed[documentID] = err
			}
		}

		zap.L().Info("rag index built",
			zap.Int("documents", len(docIDs)-len(failed)),
			zap.Int("chunks", index.Len()),
			zap.Int("top_k", topK),
		)

		rs := report.NewResultSet(params)
		for _, documentID := range docIDs {
			if err, ok := failed[documentID]; ok {
				logDocumentFailure(documentID, err)
				rs.Append(engine.NotFoundResults(documentID, "text extraction failed")...)
				continue
			}
			rs.Append(engine.ExtractRAG(ctx, documentID, index, topK)...)
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

		zap.L().Info("rag extraction complete",
			zap.Int("documents", len(rs.Documents())),
			zap.Int("rows", len(rs.Rows())),
			zap.String("output", outDir),
		)
		return nil
	},
}

func init() {
	ragCmd.Flags().StringVar(&ragFolder, "folder", "", "folder of PDF files (required)")
	ragCmd.Flags().StringVar(&ragOutput, "output", "", "output directory")
	ragCmd.Flags().IntVar(&ragTopK, "rag-n", 0, "chunks retrieved per parameter (default from config)")
	ragCmd.Flags().BoolVar(&ragExplanations, "explanations", false, "keep raw discovery responses")
	_ = ragCmd.MarkFlagRequired("folder")
	rootCmd.AddCommand(ragCmd)
}
