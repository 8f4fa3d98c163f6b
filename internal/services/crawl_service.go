package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RowWriter receives emitted rows. Writes happen from a single goroutine.
type RowWriter interface {
	Write(row models.OutputRow) error
}

// Summary describes a finished, failed or interrupted crawl
type Summary struct {
	RunID  string        `json:"run_id"`
	Target models.Target `json:"target"`
	StatsSnapshot
}

type CrawlService struct {
	repositories *RepositoryService
	commits      *CommitService
	sink         RowWriter
	rowOptions   models.RowOptions
	stats        *Stats
	runID        string
}

func NewCrawlService(repositories *RepositoryService, commits *CommitService, sink RowWriter, rowOptions models.RowOptions) *CrawlService {
	return &CrawlService{
		repositories: repositories,
		commits:      commits,
		sink:         sink,
		rowOptions:   rowOptions,
		stats:        &Stats{},
		runID:        uuid.New().String(),
	}
}

// WithRunID overrides the generated run id
func (s *CrawlService) WithRunID(runID string) *CrawlService {
	s.runID = runID
	return s
}

// RunID returns the id attached to this crawl's logs and rows
func (s *CrawlService) RunID() string {
	return s.runID
}

// Stats returns the live counters of the crawl
func (s *CrawlService) Stats() *Stats {
	return s.stats
}

// Run crawls every repository of the target and writes one row per present
// author or committer email. Unit failures are logged and skipped; pool,
// context and sink failures abort the run. The returned summary is valid
// even when err is not nil.
func (s *CrawlService) Run(ctx context.Context, target models.Target) (*Summary, error) {
	log := logger.WithFields(logrus.Fields{
		"run_id": s.runID,
		"target": target.Name,
	})
	log.Infof("Fetching repositories for %s: %s", target.Kind, target.Name)

	for repo, err := range s.repositories.List(ctx, target) {
		var pageErr *PageError
		if errors.As(err, &pageErr) {
			s.stats.skipped.Add(1)
			log.WithError(err).WithField("reason", failureReason(err)).Warn("Skipping repository page")
			continue
		}
		if err != nil {
			return s.summary(target), err
		}
		s.stats.repositories.Add(1)

		if err := s.crawlRepository(ctx, repo, log.WithField("repo", repo.FullName)); err != nil {
			return s.summary(target), err
		}
	}

	if err := ctx.Err(); err != nil {
		return s.summary(target), err
	}

	summary := s.summary(target)
	log.WithFields(logrus.Fields{
		"repositories": summary.Repositories,
		"commits":      summary.Commits,
		"rows":         summary.Rows,
		"skipped":      summary.Skipped,
	}).Info("Crawl completed")
	return summary, nil
}

func (s *CrawlService) crawlRepository(ctx context.Context, repo *models.Repository, log *logrus.Entry) error {
	for detail, err := range s.commits.Crawl(ctx, repo) {
		if err != nil {
			if fetcher.IsFatal(err) {
				return err
			}
			s.stats.skipped.Add(1)
			log.WithError(err).WithField("reason", failureReason(err)).Warn("Skipping unit of work")
			continue
		}
		s.stats.commits.Add(1)
		if detail.IsMergeCommit() {
			log.WithField("sha", detail.Ref.SHA).Debugf("Merge commit")
		}

		for _, row := range models.RowsFromCommit(detail, s.rowOptions) {
			if err := s.sink.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			s.stats.rows.Add(1)
			log.WithField("sha", detail.Ref.SHA).Debugf("%s email logged - %s", row.Type, row.Email)
		}
	}
	return nil
}

// failureReason names the class of a skipped unit error for logs
func failureReason(err error) string {
	switch {
	case fetcher.IsNotFound(err):
		return "not_found"
	case fetcher.IsServerError(err):
		return "server_error"
	default:
		return "error"
	}
}

func (s *CrawlService) summary(target models.Target) *Summary {
	return &Summary{
		RunID:         s.runID,
		Target:        target,
		StatsSnapshot: s.stats.Snapshot(),
	}
}
