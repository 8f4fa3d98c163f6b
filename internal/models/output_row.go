package models

import "strings"

// ContributorType tells which side of the commit an email came from
type ContributorType string

const (
	TypeCommitAuthor    ContributorType = "Commit Author"
	TypeCommitCommitter ContributorType = "Commit Committer"
)

// Header is the fixed column order of every output file
var Header = []string{
	"Repo Name",
	"Repo URL",
	"Repo Owner",
	"Username",
	"Role",
	"Type",
	"Email",
	"Commit URL",
	"Commit API URL",
}

// OutputRow is one emitted email record
type OutputRow struct {
	RepoName     string          `json:"repo_name"`
	RepoURL      string          `json:"repo_url"`
	RepoOwner    string          `json:"repo_owner"`
	Username     string          `json:"username"`
	Role         Role            `json:"role"`
	Type         ContributorType `json:"type"`
	Email        string          `json:"email"`
	CommitURL    string          `json:"commit_url"`
	CommitAPIURL string          `json:"commit_api_url"`
}

// Record returns the row in Header order
func (r OutputRow) Record() []string {
	return []string{
		r.RepoName,
		r.RepoURL,
		r.RepoOwner,
		r.Username,
		string(r.Role),
		string(r.Type),
		r.Email,
		r.CommitURL,
		r.CommitAPIURL,
	}
}

// RowOptions controls which emails become rows
type RowOptions struct {
	SkipNoreply bool
}

// RowsFromCommit projects a commit onto output rows, author before committer.
// A side without an email produces no row.
func RowsFromCommit(detail *CommitDetail, opts RowOptions) []OutputRow {
	if detail == nil || detail.Ref.Repository == nil {
		return nil
	}

	rows := make([]OutputRow, 0, 2)
	sides := []struct {
		sig *Signature
		typ ContributorType
	}{
		{detail.Author, TypeCommitAuthor},
		{detail.Committer, TypeCommitCommitter},
	}

	repo := detail.Ref.Repository
	for _, side := range sides {
		if !side.sig.HasEmail() {
			continue
		}
		if opts.SkipNoreply && IsNoreply(side.sig.Email) {
			continue
		}
		rows = append(rows, OutputRow{
			RepoName:     repo.Name,
			RepoURL:      repo.URL,
			RepoOwner:    repo.OwnerLogin,
			Username:     side.sig.Name,
			Role:         repo.Role,
			Type:         side.typ,
			Email:        side.sig.Email,
			CommitURL:    detail.Ref.HTMLURL,
			CommitAPIURL: detail.Ref.APIURL,
		})
	}
	return rows
}

// IsNoreply checks for GitHub's masked noreply addresses
func IsNoreply(email string) bool {
	return strings.Contains(strings.ToLower(email), "noreply")
}
