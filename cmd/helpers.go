package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/doctext"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/prompts"
	"github.com/epiparam/epiextract/internal/store"
)

// initStore opens the configured SQLite store and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newTextProvider builds the configured PDF text provider, wrapped with the
// store-backed cache when enabled.
func newTextProvider(st store.Store) (doctext.TextProvider, error) {
	provider, err := doctext.NewProvider(cfg.DocText)
	if err != nil {
		return nil, err
	}
	if cfg.DocText.CacheTexts {
		provider = doctext.NewCachedProvider(provider, st)
	}
	return provider, nil
}

// loadPromptAssets reads the prompt library and the ordered parameter list.
func loadPromptAssets() (*prompts.Library, []model.ParameterSpec, error) {
	lib, err := prompts.LoadLibrary(cfg.Prompts.PromptsPath)
	if err != nil {
		return nil, nil, err
	}
	params, err := prompts.LoadParameters(cfg.Prompts.ParametersPath)
	if err != nil {
		return nil, nil, err
	}
	return lib, params, nil
}

// listPDFs returns the PDF paths in a folder in lexicographic filename
// order. The order fixes document processing order for the whole run.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read folder %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, eris.Errorf("no PDF files in %s", dir)
	}

	sort.Strings(paths)
	return paths, nil
}

// ensureOutputDir resolves the output directory (flag value over config) and
// creates it.
func ensureOutputDir(flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = cfg.Run.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create output dir %s", dir)
	}
	return dir, nil
}

// chatModelName names the active chat model for recorded rows.
func chatModelName() string {
	if cfg.LLM.Provider == "anthropic" {
		return cfg.Anthropic.Model
	}
	return cfg.OpenAI.Deployment
}

// logDocumentFailure reports a recovered per-document failure.
func logDocumentFailure(documentID string, err error) {
	zap.L().Warn("document failed, recording Not found rows",
		zap.String("document", documentID),
		zap.Error(err),
	)
}
