// internal/domain/dashboard/service.go

package dashboard

import (
	"context"
	"errors"
	"io"

	"mediaintel/internal/domain/mention"
)

// Common errors
var (
	ErrUnknownChart      = errors.New("unknown chart")
	ErrUnknownPage       = errors.New("unknown page")
	ErrNarrativeDisabled = errors.New("narrative summaries are not configured")
)

// UploadResult is returned after a dataset has been ingested and stored
type UploadResult struct {
	Dataset mention.DatasetInfo  `json:"dataset"`
	Report  mention.IngestReport `json:"report"`
}

// Service defines the dataset and dashboard operations exposed over HTTP
type Service interface {
	// Upload parses, cleans and stores an uploaded export
	Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error)

	// List returns every stored dataset, newest first
	List(ctx context.Context) ([]mention.DatasetInfo, error)

	// Get returns dataset metadata
	Get(ctx context.Context, id string) (*mention.DatasetInfo, error)

	// Delete removes a dataset
	Delete(ctx context.Context, id string) error

	// Dashboard builds every chart of the catalog for the filtered frame
	Dashboard(ctx context.Context, id string, filter mention.Filter) (*Dashboard, error)

	// Page builds only the charts shown on one navigation page
	Page(ctx context.Context, id, page string, filter mention.Filter) (*Dashboard, error)

	// ChartPNG renders one chart as a PNG image
	ChartPNG(ctx context.Context, id, chartID string, filter mention.Filter, w io.Writer) error

	// Export writes the filtered rows and insights as an xlsx workbook
	Export(ctx context.Context, id string, filter mention.Filter, w io.Writer) error

	// Narrative asks a language model to summarize the insights
	Narrative(ctx context.Context, id string, filter mention.Filter) (string, error)

	// Pages returns the navigation pages
	Pages() []Page

	// Recommendations returns the static recommendations block
	Recommendations() []string
}
