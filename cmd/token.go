package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/internal/config"
	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/logger"
)

// tokenCommand constructs the 'token' subcommand that mints an admin bearer
// token and prints its value. Admin tokens are not bound to a pipeline and
// are needed to register pipelines and issue pipeline tokens over the API.
func tokenCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Creates an admin token and prints its value",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			description, _ := cmd.Flags().GetString("description")

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			token, err := strg.StoreToken(ctx, domain.Token{
				Description: description,
				Value:       domain.NewTokenValue(),
			})
			if err != nil {
				logger.Fatal(ctx, "could not create admin token", zap.Error(err))
			}

			fmt.Println(token.Value) //nolint: forbidigo
		},
	}

	cmd.Flags().String("description", "", "What the token is issued for")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}
