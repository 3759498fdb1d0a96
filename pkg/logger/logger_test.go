package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/pkg/logger"
)

func TestSetup(t *testing.T) {
	for _, env := range []string{logger.DevelopmentEnvironment, logger.ProductionEnvironment} {
		t.Run(env, func(t *testing.T) {
			require.NotPanics(t, func() {
				logger.Setup(env)
			})
			require.NotNil(t, logger.Get(context.Background()))
		})
	}
}

func TestGet(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	// empty context falls back to the default logger
	require.NotNil(t, logger.Get(context.Background()))

	// a logger attached to the context wins
	custom, _ := zap.NewDevelopment()
	ctx := logger.WithLogger(context.Background(), custom)
	require.Equal(t, custom, logger.Get(ctx))
}

func TestWithFields(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	ctx := logger.WithFields(context.Background(), zap.String("pipeline", "p1"))
	require.NotNil(t, logger.Get(ctx))
	require.NotEqual(t, logger.Get(context.Background()), logger.Get(ctx))
}

func TestLoggingFunctions(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)
	ctx := context.Background()

	require.NotPanics(t, func() {
		logger.Debug(ctx, "debug message", zap.String("key", "value"))
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
		logger.Error(ctx, "error message")
		logger.Sync(ctx)
	})
}
