package storage

import (
	"context"

	"github.com/mgcam/npg-porch/pkg/domain"
)

// PipelineFilter narrows a pipeline listing. Zero-valued fields are ignored.
type PipelineFilter struct {
	// Name matches the pipeline name exactly.
	Name string
	// Version matches a concrete pipeline version.
	Version string
	// URI matches the pipeline repository URI.
	URI string
}

// PipelineStorage defines persistence operations for registered pipelines.
type PipelineStorage interface {
	// StorePipeline inserts a new pipeline version and returns the stored
	// row. A clash on (name, version) yields ErrDuplicate.
	StorePipeline(ctx context.Context, p domain.Pipeline) (*domain.Pipeline, error)
	// Pipelines lists pipelines matching the filter, newest first.
	Pipelines(ctx context.Context, filter PipelineFilter) ([]domain.Pipeline, error)
	// FindPipeline resolves a pipeline reference. An empty or "latest"
	// version selects the most recently registered version of the name.
	// Returns nil when no pipeline matches.
	FindPipeline(ctx context.Context, name, version string) (*domain.Pipeline, error)
}
