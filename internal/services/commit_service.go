package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/workers"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
)

type CommitService struct {
	client  *github.Client
	perPage int
	details *workers.DetailPool
}

func NewCommitService(client *github.Client, perPage int, details *workers.DetailPool) *CommitService {
	if details == nil {
		details = workers.NewDetailPool(1, nil)
	}
	return &CommitService{
		client:  client,
		perPage: perPage,
		details: details,
	}
}

// ListRefs walks the commit list of a repository. An empty repository
// yields nothing.
func (s *CommitService) ListRefs(ctx context.Context, repo *models.Repository) iter.Seq2[models.CommitRef, error] {
	return func(yield func(models.CommitRef, error) bool) {
		opts := &github.CommitsListOptions{
			ListOptions: github.ListOptions{Page: 1, PerPage: s.perPage},
		}

		for {
			logger.WithFields(logrus.Fields{
				"repo": repo.FullName,
				"page": opts.Page,
			}).Info("Searching project commits")

			commits, resp, err := s.client.Repositories.ListCommits(ctx, repo.OwnerLogin, repo.Name, opts)
			if err != nil {
				if fetcher.IsEmptyRepository(err) {
					logger.WithField("repo", repo.FullName).Debugf("Repository has no commits")
					return
				}
				yield(models.CommitRef{}, fmt.Errorf("failed to list commits for %s: %w", repo.FullName, err))
				return
			}

			for _, c := range commits {
				ref := models.CommitRef{
					Repository: repo,
					SHA:        c.GetSHA(),
					APIURL:     c.GetURL(),
					HTMLURL:    c.GetHTMLURL(),
				}
				if !yield(ref, nil) {
					return
				}
			}

			next, ok := nextPage(opts.Page, len(commits), s.perPage, resp)
			if !ok {
				return
			}
			opts.Page = next
		}
	}
}

// GetDetail fetches author and committer metadata of a single commit
func (s *CommitService) GetDetail(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
	commit, _, err := s.client.Repositories.GetCommit(ctx, ref.Repository.OwnerLogin, ref.Repository.Name, ref.SHA, nil)
	if err != nil {
		return nil, err
	}

	detail := &models.CommitDetail{Ref: ref}
	if detail.Ref.APIURL == "" {
		detail.Ref.APIURL = commit.GetURL()
	}
	if detail.Ref.HTMLURL == "" {
		detail.Ref.HTMLURL = commit.GetHTMLURL()
	}
	if c := commit.GetCommit(); c != nil {
		detail.Author = signatureFromAPI(c.GetAuthor())
		detail.Committer = signatureFromAPI(c.GetCommitter())
	}
	for _, parent := range commit.Parents {
		detail.Parents = append(detail.Parents, parent.GetSHA())
	}
	return detail, nil
}

// Crawl yields the detail of every commit of a repository in commit-list
// order. Refs are fetched in page-sized batches through the detail pool.
// A failed detail fetch is yielded as *UnitError and the crawl goes on; a
// failed commit list page is yielded once and ends the sequence.
func (s *CommitService) Crawl(ctx context.Context, repo *models.Repository) iter.Seq2[*models.CommitDetail, error] {
	return func(yield func(*models.CommitDetail, error) bool) {
		batch := make([]models.CommitRef, 0, s.perPage)

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			results, err := s.details.FetchAll(ctx, batch, s.GetDetail)
			batch = batch[:0]
			if err != nil {
				yield(nil, err)
				return false
			}
			for _, r := range results {
				if r.Err != nil {
					if !yield(nil, &UnitError{Repository: repo.FullName, SHA: r.Ref.SHA, Err: r.Err}) {
						return false
					}
					continue
				}
				if !yield(r.Detail, nil) {
					return false
				}
			}
			return true
		}

		for ref, err := range s.ListRefs(ctx, repo) {
			if err != nil {
				if flush() {
					yield(nil, err)
				}
				return
			}
			batch = append(batch, ref)
			if len(batch) >= s.perPage && !flush() {
				return
			}
		}
		flush()
	}
}

func signatureFromAPI(author *github.CommitAuthor) *models.Signature {
	if author == nil {
		return nil
	}
	return &models.Signature{
		Name:  author.GetName(),
		Email: author.GetEmail(),
	}
}
