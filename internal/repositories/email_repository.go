package repositories

import (
	"database/sql"

	"github.com/alimgiray/gitemails/internal/models"
)

type EmailRepository struct {
	db *sql.DB
}

func NewEmailRepository(db *sql.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create stores a new email record
func (r *EmailRepository) Create(record *models.EmailRecord) error {
	query := `INSERT INTO emails (id, run_id, repo_name, repo_url, repo_owner, username, role, type, email, commit_url, commit_api_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		record.ID, record.RunID, record.RepoName, record.RepoURL, record.RepoOwner, record.Username,
		string(record.Role), string(record.Type), record.Email, record.CommitURL, record.CommitAPIURL, record.CreatedAt,
	)
	return err
}

// GetByRunID retrieves all email records of a crawl in insertion order
func (r *EmailRepository) GetByRunID(runID string) ([]*models.EmailRecord, error) {
	query := `SELECT id, run_id, repo_name, repo_url, repo_owner, username, role, type, email, commit_url, commit_api_url, created_at FROM emails WHERE run_id = ? ORDER BY rowid ASC`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.EmailRecord
	for rows.Next() {
		record := &models.EmailRecord{}
		var role, typ string
		err := rows.Scan(
			&record.ID, &record.RunID, &record.RepoName, &record.RepoURL, &record.RepoOwner, &record.Username,
			&role, &typ, &record.Email, &record.CommitURL, &record.CommitAPIURL, &record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		record.Role = models.Role(role)
		record.Type = models.ContributorType(typ)
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountByRunID returns the number of email records of a crawl
func (r *EmailRepository) CountByRunID(runID string) (int, error) {
	query := `SELECT COUNT(*) FROM emails WHERE run_id = ?`
	var count int
	err := r.db.QueryRow(query, runID).Scan(&count)
	return count, err
}

// GetDistinctEmailsByRunID returns every distinct email of a crawl ordered alphabetically
func (r *EmailRepository) GetDistinctEmailsByRunID(runID string) ([]string, error) {
	query := `SELECT DISTINCT email FROM emails WHERE run_id = ? ORDER BY email ASC`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
