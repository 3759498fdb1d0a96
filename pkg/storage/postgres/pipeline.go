package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// StorePipeline inserts a new pipeline version and returns the stored row.
func (p *PgSQL) StorePipeline(ctx context.Context, d domain.Pipeline) (*domain.Pipeline, error) {
	var row PgPipeline
	row.FromDomain(d)

	var stored PgPipeline
	found, err := p.Builder.Insert(pipelineTable).
		Rows(row).
		Returning(&PgPipeline{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store pipeline into pg: %w", mapUnique(err))
	}
	if !found {
		return nil, fmt.Errorf("could not store pipeline into pg: no row returned")
	}

	out := stored.ToDomain()

	return &out, nil
}

// Pipelines lists pipelines matching the filter, newest first.
func (p *PgSQL) Pipelines(ctx context.Context, filter storage.PipelineFilter) ([]domain.Pipeline, error) {
	w := []goqu.Expression{}
	if filter.Name != "" {
		w = append(w, goqu.I("name").Eq(filter.Name))
	}
	if filter.Version != "" {
		w = append(w, goqu.I("version").Eq(filter.Version))
	}
	if filter.URI != "" {
		w = append(w, goqu.I("repository_uri").Eq(filter.URI))
	}

	var rows []PgPipeline
	if err := p.Builder.From(pipelineTable).
		Where(w...).
		Order(goqu.I("created").Desc(), goqu.I("pipeline_id").Desc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch pipelines from pg: %w", err)
	}

	out := make([]domain.Pipeline, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}

	return out, nil
}

// FindPipeline resolves a pipeline reference. An empty or "latest" version
// selects the most recently registered version of the name.
func (p *PgSQL) FindPipeline(ctx context.Context, name, version string) (*domain.Pipeline, error) {
	w := []goqu.Expression{goqu.I("name").Eq(name)}
	if version != "" && version != domain.LatestVersion {
		w = append(w, goqu.I("version").Eq(version))
	}

	var row PgPipeline
	found, err := p.Builder.From(pipelineTable).
		Where(w...).
		Order(goqu.I("created").Desc(), goqu.I("pipeline_id").Desc()).
		Limit(1).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch pipeline from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	out := row.ToDomain()

	return &out, nil
}

// pipelinesByID fetches the referenced pipelines in one query and returns
// them keyed by id. Used to attach pipelines to task and token rows.
func (p *PgSQL) pipelinesByID(ctx context.Context, ids []int64) (map[int64]domain.Pipeline, error) {
	out := map[int64]domain.Pipeline{}
	if len(ids) == 0 {
		return out, nil
	}

	var rows []PgPipeline
	if err := p.Builder.From(pipelineTable).
		Where(goqu.I("pipeline_id").In(ids)).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch pipelines by id from pg: %w", err)
	}

	for i := range rows {
		out[rows[i].PipelineID] = rows[i].ToDomain()
	}

	return out, nil
}
