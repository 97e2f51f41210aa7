// Package doctext extracts text content from PDF files. Providers implement
// the TextProvider capability; which one runs is a configuration choice.
package doctext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/epiparam/epiextract/internal/config"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/pkg/docint"
)

// TextProvider extracts structured text from one PDF file.
type TextProvider interface {
	Extract(ctx context.Context, pdfPath string) (*model.DocumentText, error)
}

// NewProvider creates a TextProvider based on config.
func NewProvider(cfg config.DocTextConfig) (TextProvider, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "layout":
		if cfg.Key == "" || cfg.Endpoint == "" {
			return nil, eris.New("doctext: layout provider requires doctext.key and doctext.endpoint")
		}
		return NewLayoutProvider(docint.NewClient(cfg.Key, cfg.Endpoint)), nil
	default:
		return nil, eris.Errorf("doctext: unknown provider %q", cfg.Provider)
	}
}
