package doctext

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/model"
)

// TextCache persists extracted document text between runs so repeat
// extractions do not re-pay the layout service.
type TextCache interface {
	GetDocumentText(ctx context.Context, documentID string) (*model.DocumentText, bool, error)
	PutDocumentText(ctx context.Context, doc *model.DocumentText) error
}

// CachedProvider consults the cache before falling through to the wrapped
// provider, writing through on success.
type CachedProvider struct {
	inner TextProvider
	cache TextCache
}

// NewCachedProvider wraps a provider with a text cache.
func NewCachedProvider(inner TextProvider, cache TextCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// Extract returns the cached text when available, otherwise extracts and
// caches. Cache failures are logged and never block extraction.
func (c *CachedProvider) Extract(ctx context.Context, pdfPath string) (*model.DocumentText, error) {
	documentID := filepath.Base(pdfPath)

	cached, ok, err := c.cache.GetDocumentText(ctx, documentID)
	if err != nil {
		zap.L().Warn("doctext: cache lookup failed",
			zap.String("document", documentID),
			zap.Error(err),
		)
	} else if ok {
		zap.L().Debug("doctext: using cached text", zap.String("document", documentID))
		return cached, nil
	}

	doc, err := c.inner.Extract(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutDocumentText(ctx, doc); err != nil {
		zap.L().Warn("doctext: cache write failed",
			zap.String("document", documentID),
			zap.Error(err),
		)
	}
	return doc, nil
}
