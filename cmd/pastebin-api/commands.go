package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/auth"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/config"
	"go.uber.org/zap"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Flag pastes whose time or view limit has been reached",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.service.SweepExpired(cmd.Context(), app.service.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired_by_time=%d expired_by_views=%d total=%d\n",
				result.ExpiredByTime, result.ExpiredByViews, result.TotalExpired)
			return nil
		},
	}
}

func newPurgeCommand() *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired pastes older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			days := app.config.RetentionDays
			if cmd.Flags().Changed("retention-days") {
				days = retentionDays
			}
			result, err := app.service.Purge(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted=%d retention_days=%d cutoff=%s\n",
				result.Deleted, result.RetentionDays, result.Cutoff.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 7, "Days an expired paste is kept before deletion")
	return cmd
}

func newIssueCleanupTokenCommand() *cobra.Command {
	var (
		ttl     time.Duration
		subject string
	)
	cmd := &cobra.Command{
		Use:   "issue-cleanup-token",
		Short: "Mint a short-lived bearer token for the cleanup endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if appConfig.CleanupSecret == "" {
				return auth.ErrCleanupSecretNotConfigured
			}
			issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(appConfig.CleanupSecret),
				TokenTTL:      ttl,
			})
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.IssueCleanupToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject recorded in the token")
	return cmd
}

func newLambdaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve the API as an AWS Lambda HTTP handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			router, err := app.newRouter(cmd.Context())
			if err != nil {
				return err
			}
			adapter := ginadapter.NewV2(router)
			app.logger.Info("lambda handler starting", zap.String("version", Version))
			lambda.Start(func(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				return adapter.ProxyWithContext(ctx, request)
			})
			return nil
		},
	}
}
