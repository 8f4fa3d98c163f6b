package workers

import (
	"context"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/models"
	"golang.org/x/sync/errgroup"
)

// FetchFunc loads the detail of one commit
type FetchFunc func(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error)

// DetailResult is the outcome of one detail fetch
type DetailResult struct {
	Ref    models.CommitRef
	Detail *models.CommitDetail
	Err    error
}

// DetailPool fetches commit details with a bounded number of workers. The
// bound is the configured worker count, capped by the number of tokens that
// can currently serve requests.
type DetailPool struct {
	workers int
	live    func() int
}

// NewDetailPool creates a pool. live may be nil when no token cap applies.
func NewDetailPool(workers int, live func() int) *DetailPool {
	return &DetailPool{
		workers: workers,
		live:    live,
	}
}

// Size returns the number of workers the next batch will use
func (p *DetailPool) Size() int {
	n := p.workers
	if p.live != nil {
		if live := p.live(); live < n {
			n = live
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// FetchAll fetches every ref and returns the results in input order.
// Unit failures are stored on their result; a fatal error cancels the
// remaining fetches and is returned instead.
func (p *DetailPool) FetchAll(ctx context.Context, refs []models.CommitRef, fetch FetchFunc) ([]DetailResult, error) {
	results := make([]DetailResult, len(refs))

	size := p.Size()
	if size == 1 {
		for i, ref := range refs {
			detail, err := fetch(ctx, ref)
			if fetcher.IsFatal(err) {
				return nil, err
			}
			results[i] = DetailResult{Ref: ref, Detail: detail, Err: err}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)
	for i, ref := range refs {
		g.Go(func() error {
			detail, err := fetch(gctx, ref)
			if fetcher.IsFatal(err) {
				return err
			}
			results[i] = DetailResult{Ref: ref, Detail: detail, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
