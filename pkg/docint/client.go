// Package docint provides a client for a document layout-analysis service
// that extracts text lines, tables, and section structure from PDFs.
package docint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrUnparsable is returned when the service cannot parse the submitted
// document at all. Callers treat it as "no text" rather than a batch-fatal
// failure.
var ErrUnparsable = errors.New("docint: document could not be parsed")

// Client defines the layout-analysis operations used by the pipeline.
type Client interface {
	// Analyze submits raw PDF bytes and returns the layout analysis result.
	Analyze(ctx context.Context, pdf []byte) (*AnalyzeResult, error)
}

// AnalyzeResult is the parsed layout analysis response.
type AnalyzeResult struct {
	Pages      []Page      `json:"pages"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Sections   []Section   `json:"sections"`
	Tables     []Table     `json:"tables"`
}

// Page holds the text lines of one page in reading order.
type Page struct {
	PageNumber int    `json:"page_number"`
	Lines      []Line `json:"lines"`
}

// Line is a single line of extracted text.
type Line struct {
	Content string `json:"content"`
}

// Paragraph is a layout-detected paragraph.
type Paragraph struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// Section groups paragraphs under a detected heading. Elements are JSON
// pointers of the form "/paragraphs/N" into the Paragraphs slice.
type Section struct {
	Elements []string `json:"elements"`
}

// Table is a detected table.
type Table struct {
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	Cells       []Cell `json:"cells"`
}

// Cell is one cell of a detected table.
type Cell struct {
	RowIndex    int    `json:"row_index"`
	ColumnIndex int    `json:"column_index"`
	Content     string `json:"content"`
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewClient creates a layout-analysis client for the given endpoint.
func NewClient(apiKey, endpoint string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) Analyze(ctx context.Context, pdf []byte) (*AnalyzeResult, error) {
	payload, err := json.Marshal(analyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(pdf),
	})
	if err != nil {
		return nil, eris.Wrap(err, "docint: marshal request")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var body []byte
	var statusCode int
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "docint: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, eris.Wrap(lastErr, "docint: request failed")
		}

		body, err = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "docint: read response body")
		}
		statusCode = resp.StatusCode

		if retryableStatusCode(statusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("docint: status %d: %s", statusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}
		break
	}

	// The service rejects documents it cannot parse with 422; surface that as
	// the distinct unparsable failure.
	if statusCode == http.StatusUnprocessableEntity {
		return nil, ErrUnparsable
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("docint: unexpected status %d: %s", statusCode, string(body))
	}

	var result AnalyzeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "docint: unmarshal response")
	}

	return &result, nil
}
