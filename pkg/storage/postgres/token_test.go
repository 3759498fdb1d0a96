package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mgcam/npg-porch/pkg/domain"
)

func TestPgSQL_StoreToken(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pipeline := seedPipeline(t, pg, "ptest")

	bound, err := pg.StoreToken(ctx, domain.Token{
		Pipeline:    &pipeline,
		Description: "runner",
		Value:       domain.NewTokenValue(),
	})
	require.NoError(t, err)
	require.NotZero(t, bound.ID)
	require.False(t, bound.Admin())
	require.Equal(t, "ptest", bound.Pipeline.Name)
	require.False(t, bound.IssuedAt.IsZero())

	admin, err := pg.StoreToken(ctx, domain.Token{
		Description: "admin",
		Value:       domain.NewTokenValue(),
	})
	require.NoError(t, err)
	require.True(t, admin.Admin())
}

func TestPgSQL_TokenByValue(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pipeline := seedPipeline(t, pg, "ptest")
	token := seedToken(t, pg, &pipeline)

	found, err := pg.TokenByValue(ctx, token.Value)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, token.ID, found.ID)
	require.Equal(t, "ptest", found.Pipeline.Name)
	require.False(t, found.Revoked())

	missing, err := pg.TokenByValue(ctx, domain.NewTokenValue())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPgSQL_RevokeToken(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pipeline := seedPipeline(t, pg, "ptest")
	token := seedToken(t, pg, &pipeline)

	require.NoError(t, pg.RevokeToken(ctx, token.ID))

	revoked, err := pg.TokenByValue(ctx, token.Value)
	require.NoError(t, err)
	require.True(t, revoked.Revoked())
	revokedAt := revoked.RevokedAt

	// revoking again keeps the original revocation time
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, pg.RevokeToken(ctx, token.ID))

	again, err := pg.TokenByValue(ctx, token.Value)
	require.NoError(t, err)
	require.True(t, again.RevokedAt.Equal(revokedAt))
}
