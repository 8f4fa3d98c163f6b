package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
)

// MaxPageFailures is the number of consecutive listing pages that may fail
// before the walk is given up
const MaxPageFailures = 3

type RepositoryService struct {
	client  *github.Client
	perPage int
}

func NewRepositoryService(client *github.Client, perPage int) *RepositoryService {
	return &RepositoryService{
		client:  client,
		perPage: perPage,
	}
}

// List walks every repository of the target page by page. Each range over
// the returned sequence starts again from page 1; stopping the range early
// stops paging.
func (s *RepositoryService) List(ctx context.Context, target models.Target) iter.Seq2[*models.Repository, error] {
	return func(yield func(*models.Repository, error) bool) {
		log := logger.WithField("target", target.Name)
		log.Infof("Searching for repos for %s %s", target.Kind, target.Name)

		page := 1
		failures := 0
		for {
			repos, resp, err := s.fetchPage(ctx, target, page)
			if err != nil {
				switch {
				case page == 1 && fetcher.IsNotFound(err):
					yield(nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target.Name))
					return
				case page == 1 || fetcher.IsFatal(err) || failures+1 >= MaxPageFailures:
					yield(nil, fmt.Errorf("failed to list repositories for %s (page %d): %w", target.Name, page, err))
					return
				}

				// Later pages can be skipped; page numbers stay valid without them
				failures++
				if !yield(nil, &PageError{Target: target.Name, Page: page, Err: err}) {
					return
				}
				page++
				continue
			}
			failures = 0

			for _, r := range repos {
				repo := repositoryFromAPI(target, r)
				log.WithFields(logrus.Fields{
					"repo":        repo.FullName,
					"fork":        repo.Fork,
					"description": repo.GetDescription(),
				}).Info("Found repo")
				if !yield(repo, nil) {
					return
				}
			}

			next, ok := nextPage(page, len(repos), s.perPage, resp)
			if !ok {
				return
			}
			page = next
		}
	}
}

// Collect drains List into a slice
func (s *RepositoryService) Collect(ctx context.Context, target models.Target) ([]*models.Repository, error) {
	var repos []*models.Repository
	for repo, err := range s.List(ctx, target) {
		if err != nil {
			return repos, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func (s *RepositoryService) fetchPage(ctx context.Context, target models.Target, page int) ([]*github.Repository, *github.Response, error) {
	listOpts := github.ListOptions{Page: page, PerPage: s.perPage}

	if target.IsOrg() {
		opts := &github.RepositoryListByOrgOptions{
			Type:        "all",
			Sort:        "full_name",
			ListOptions: listOpts,
		}
		return s.client.Repositories.ListByOrg(ctx, target.Name, opts)
	}

	opts := &github.RepositoryListOptions{
		Type:        "all", // owned and member repositories
		Sort:        "full_name",
		ListOptions: listOpts,
	}
	return s.client.Repositories.List(ctx, target.Name, opts)
}

// repositoryFromAPI converts GitHub API data into a Repository
func repositoryFromAPI(target models.Target, r *github.Repository) *models.Repository {
	ownerLogin := r.GetOwner().GetLogin()
	if ownerLogin == "" {
		ownerLogin = target.Name
	}

	repo := models.NewRepository(target, r.GetName(), r.GetFullName(), r.GetHTMLURL(), ownerLogin)
	if repo.FullName == "" {
		repo.FullName = ownerLogin + "/" + repo.Name
	}
	repo.Description = r.Description
	repo.Fork = r.GetFork()
	return repo
}
