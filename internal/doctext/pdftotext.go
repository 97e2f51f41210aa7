package doctext

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/epiparam/epiextract/internal/model"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool. It
// produces no table or section segmentation; the full text stands in as a
// single section.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Extract runs pdftotext -layout on the given PDF.
func (p *PdfToText) Extract(ctx context.Context, pdfPath string) (*model.DocumentText, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "doctext: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return &model.DocumentText{
		SourceID: filepath.Base(pdfPath),
		FullText: stdout.String(),
	}, nil
}
