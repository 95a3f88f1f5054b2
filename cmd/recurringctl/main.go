package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/core/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
	"github.com/openbooks/backoffice_app/internal/platform/config"
	"github.com/openbooks/backoffice_app/internal/repositories/database/pgsql"
	"github.com/openbooks/backoffice_app/pkg/database"
)

// recurringctl drives the recurring template scheduler from cron or an
// operator shell instead of the HTTP API.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var (
		companyID string
		actorID   string
		asOfStr   string
	)

	rootCmd := &cobra.Command{
		Use:   "recurringctl",
		Short: "Operate the recurring journal template scheduler",
	}
	rootCmd.PersistentFlags().StringVar(&companyID, "company", "", "company ID to operate on")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "scheduler", "actor recorded on generated entries")
	_ = rootCmd.MarkPersistentFlagRequired("company")

	generateCmd := &cobra.Command{
		Use:   "generate-due",
		Short: "Generate one draft entry for every due template",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.GenerateEntriesRequest{}
			if asOfStr != "" {
				asOf, err := time.Parse("2006-01-02", asOfStr)
				if err != nil {
					return fmt.Errorf("invalid --as-of date %q: %w", asOfStr, err)
				}
				req.AsOf = &asOf
			}

			return withServices(cmd.Context(), logger, func(ctx context.Context, svc *servicesBundle) error {
				resp, err := svc.template.GenerateDueEntries(ctx, companyID, req, actorID)
				if err != nil {
					return err
				}
				logger.Info("Generation run finished",
					slog.String("company_id", companyID),
					slog.Int("generated_count", len(resp.Generated)),
				)
				for _, g := range resp.Generated {
					logger.Info("Generated entry",
						slog.String("template_id", g.TemplateID),
						slog.String("entry_id", g.EntryID),
						slog.Time("generated_for", g.GeneratedForDate),
						slog.Time("next_generation", g.NextGenerationDate),
					)
				}
				return nil
			})
		},
	}
	generateCmd.Flags().StringVar(&asOfStr, "as-of", "", "treat this date (YYYY-MM-DD) as today")

	deactivateCmd := &cobra.Command{
		Use:   "deactivate-all",
		Short: "Deactivate every active template of the company",
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, err := cmd.Flags().GetString("reason")
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), logger, func(ctx context.Context, svc *servicesBundle) error {
				resp, err := svc.template.DeactivateAllTemplates(ctx, companyID, dto.DeactivateAllTemplatesRequest{Reason: reason}, actorID)
				if err != nil {
					return err
				}
				logger.Info("Templates deactivated",
					slog.String("company_id", companyID),
					slog.Int("deactivated_count", resp.DeactivatedCount),
				)
				return nil
			})
		},
	}
	deactivateCmd.Flags().String("reason", "", "reason recorded on each template")
	_ = deactivateCmd.MarkFlagRequired("reason")

	rootCmd.AddCommand(generateCmd, deactivateCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// servicesBundle holds the service facades a command can use.
type servicesBundle struct {
	template portssvc.TemplateSvcFacade
}

// withServices loads config, connects to the database and runs fn with wired
// services and a logger-carrying context.
func withServices(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context, svc *servicesBundle) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, true)
	if err != nil {
		return fmt.Errorf("failed to initialize database pool: %w", err)
	}
	defer dbPool.Close()

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(repos)

	ctx = middleware.ContextWithLogger(ctx, logger)
	return fn(ctx, &servicesBundle{template: container.Template})
}
