package output

import (
	"database/sql"

	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/repositories"
	"github.com/alimgiray/gitemails/pkg/database"
)

// SQLiteSink stores rows in the emails table tagged with the crawl's run id.
// Rows of earlier crawls in the same file are kept.
type SQLiteSink struct {
	db    *sql.DB
	repo  *repositories.EmailRepository
	runID string
}

// NewSQLiteSink opens or creates the database at path
func NewSQLiteSink(path, runID string) (*SQLiteSink, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteSink{
		db:    db,
		repo:  repositories.NewEmailRepository(db),
		runID: runID,
	}, nil
}

func (s *SQLiteSink) Write(row models.OutputRow) error {
	return s.repo.Create(models.NewEmailRecord(s.runID, row))
}

// Repository exposes the underlying email repository
func (s *SQLiteSink) Repository() *repositories.EmailRepository {
	return s.repo
}

// DistinctEmails returns the distinct emails stored by this crawl
func (s *SQLiteSink) DistinctEmails() ([]string, error) {
	return s.repo.GetDistinctEmailsByRunID(s.runID)
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
