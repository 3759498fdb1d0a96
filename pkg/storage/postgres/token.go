package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mgcam/npg-porch/pkg/domain"
)

// StoreToken inserts a new token and returns the stored row including its
// plaintext value.
func (p *PgSQL) StoreToken(ctx context.Context, d domain.Token) (*domain.Token, error) {
	var row PgToken
	row.FromDomain(d)

	var stored PgToken
	found, err := p.Builder.Insert(tokenTable).
		Rows(row).
		Returning(&PgToken{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store token into pg: %w", mapUnique(err))
	}
	if !found {
		return nil, fmt.Errorf("could not store token into pg: no row returned")
	}

	out := stored.ToDomain()
	if err := p.attachTokenPipeline(ctx, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// TokenByValue fetches a token by its plaintext value. Returns nil when no
// such token exists; revoked tokens are returned with RevokedAt set.
func (p *PgSQL) TokenByValue(ctx context.Context, value string) (*domain.Token, error) {
	var row PgToken
	found, err := p.Builder.From(tokenTable).
		Where(goqu.I("token").Eq(value)).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch token from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	out := row.ToDomain()
	if err := p.attachTokenPipeline(ctx, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// RevokeToken marks a token revoked, keeping the original revocation time
// for tokens revoked earlier.
func (p *PgSQL) RevokeToken(ctx context.Context, id domain.TokenID) error {
	if _, err := p.Builder.Update(tokenTable).
		Set(goqu.Record{"date_revoked": goqu.L("CURRENT_TIMESTAMP")}).
		Where(
			goqu.I("token_id").Eq(int64(id)),
			goqu.I("date_revoked").IsNull(),
		).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not revoke token in pg: %w", err)
	}

	return nil
}

// attachTokenPipeline fills in the pipeline a token is bound to, if any.
func (p *PgSQL) attachTokenPipeline(ctx context.Context, token *domain.Token) error {
	if token.Pipeline == nil {
		return nil
	}

	pipelines, err := p.pipelinesByID(ctx, []int64{int64(token.Pipeline.ID)})
	if err != nil {
		return err
	}
	if pl, ok := pipelines[int64(token.Pipeline.ID)]; ok {
		token.Pipeline = &pl
	}

	return nil
}
