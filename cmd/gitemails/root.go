package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/handlers"
	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/output"
	"github.com/alimgiray/gitemails/internal/services"
	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/alimgiray/gitemails/internal/workers"
	"github.com/alimgiray/gitemails/pkg/config"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gitemails",
		Short:         "Collect commit author and committer emails from a GitHub user or organization",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.GitHub.TokenSet = cmd.Flags().Changed("token")
			return crawl(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Target.User, "user", "", "GitHub user to crawl")
	flags.StringVar(&cfg.Target.Org, "org", "", "GitHub organization to crawl")
	flags.StringVar(&cfg.GitHub.Token, "token", "", "GitHub personal access token")
	flags.StringVar(&cfg.GitHub.TokenFile, "token-file", "", "file with one GitHub token per line")
	flags.StringVarP(&cfg.Output.Path, "output", "o", "", "output path (default github-data-<target>.<ext>)")
	flags.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "output format: csv, xlsx or sqlite (xlsx is saved only when the crawl ends)")
	flags.IntVar(&cfg.Crawl.Workers, "workers", cfg.Crawl.Workers, "concurrent commit detail fetches, capped by live tokens")
	flags.BoolVar(&cfg.Crawl.SkipNoreply, "skip-noreply", cfg.Crawl.SkipNoreply, "drop users.noreply.github.com addresses")
	flags.IntVar(&cfg.GitHub.PerPage, "per-page", cfg.GitHub.PerPage, "page size for list calls (max 100)")
	flags.IntVar(&cfg.GitHub.MaxRetries, "max-retries", cfg.GitHub.MaxRetries, "retries for server errors")
	flags.Float64Var(&cfg.GitHub.RateLimit, "rate-limit", cfg.GitHub.RateLimit, "requests per second cap, 0 disables")
	flags.BoolVar(&cfg.GitHub.NoWait, "no-wait", cfg.GitHub.NoWait, "fail instead of sleeping when every token is exhausted")
	flags.StringVar(&cfg.GitHub.BaseURL, "api-url", cfg.GitHub.BaseURL, "GitHub REST API base URL")
	flags.StringVar(&cfg.Status.Addr, "status-addr", cfg.Status.Addr, "serve crawl status on this address, e.g. :8080")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: json or text")

	cmd.MarkFlagsMutuallyExclusive("user", "org")
	cmd.MarkFlagsOneRequired("user", "org")
	cmd.MarkFlagsMutuallyExclusive("token", "token-file")

	return cmd
}

func crawl(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ResolveTokens(); err != nil {
		return err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	target := cfg.CrawlTarget()
	runID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run_id": runID, "target": target.Name})

	// Initialize GitHub client
	client, pool, err := fetcher.NewClient(fetcher.Options{
		BaseURL:        cfg.GitHub.BaseURL,
		Tokens:         cfg.GitHub.Tokens,
		MaxRetries:     cfg.GitHub.MaxRetries,
		Backoff:        cfg.GitHub.RetryBackoff,
		RequestTimeout: cfg.GitHub.RequestTimeout,
		RateLimit:      cfg.GitHub.RateLimit,
		NoWait:         cfg.GitHub.NoWait,
	})
	if err != nil {
		return err
	}

	// Initialize output
	path := cfg.OutputPath()
	sink, err := output.Open(cfg.Output.Format, path, runID)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.WithError(err).Error("Failed to close output")
		}
	}()

	// Initialize services
	details := workers.NewDetailPool(cfg.Crawl.Workers, pool.Live)
	repositoryService := services.NewRepositoryService(client, cfg.GitHub.PerPage)
	commitService := services.NewCommitService(client, cfg.GitHub.PerPage, details)
	crawlService := services.NewCrawlService(repositoryService, commitService, sink, models.RowOptions{
		SkipNoreply: cfg.Crawl.SkipNoreply,
	}).WithRunID(runID)

	if cfg.Status.Addr != "" {
		stop := startStatusServer(cfg.Status.Addr, runID, target, crawlService.Stats(), pool, log)
		defer stop()
	}

	log.Infof("Writing %s output to %s", cfg.Output.Format, path)
	if !output.WritesIncrementally(cfg.Output.Format) {
		log.Warnf("%s output is saved when the crawl ends; an interrupted run keeps no rows", cfg.Output.Format)
	}
	summary, err := crawlService.Run(ctx, target)
	if err != nil {
		fields := logrus.Fields{
			"repositories": summary.Repositories,
			"commits":      summary.Commits,
			"rows":         summary.Rows,
		}
		if errors.Is(err, context.Canceled) {
			log.WithFields(fields).Warn("Crawl interrupted, partial results kept")
		} else {
			log.WithFields(fields).WithError(err).Error("Crawl failed, partial results kept")
		}
		return err
	}

	if store, ok := sink.(*output.SQLiteSink); ok {
		emails, err := store.DistinctEmails()
		if err != nil {
			return err
		}
		log.WithField("distinct_emails", len(emails)).Info("Emails stored")
	}
	return nil
}

func startStatusServer(addr, runID string, target models.Target, stats handlers.StatsSource, pool *tokens.Pool, log *logrus.Entry) func() {
	gin.SetMode(gin.ReleaseMode)

	statusHandler := handlers.NewStatusHandler(runID, target, stats, pool)
	server := &http.Server{
		Addr:    addr,
		Handler: handlers.NewRouter(statusHandler),
	}

	go func() {
		log.Infof("Status server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Status server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Status server shutdown failed")
		}
	}
}
