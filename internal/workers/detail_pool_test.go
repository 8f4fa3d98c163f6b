package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRefs(n int) []models.CommitRef {
	refs := make([]models.CommitRef, n)
	for i := range refs {
		refs[i] = models.CommitRef{SHA: fmt.Sprintf("sha%d", i)}
	}
	return refs
}

func echoFetch(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
	return &models.CommitDetail{Ref: ref}, nil
}

func TestDetailPoolSize(t *testing.T) {
	assert.Equal(t, 4, NewDetailPool(4, nil).Size())
	assert.Equal(t, 2, NewDetailPool(4, func() int { return 2 }).Size())
	assert.Equal(t, 1, NewDetailPool(4, func() int { return 0 }).Size())
	assert.Equal(t, 1, NewDetailPool(0, nil).Size())
}

func TestDetailPoolFetchAllKeepsOrder(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			refs := testRefs(20)
			fetch := func(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
				// later refs finish first
				var i int
				fmt.Sscanf(ref.SHA, "sha%d", &i)
				time.Sleep(time.Duration(20-i) * time.Millisecond)
				return echoFetch(ctx, ref)
			}

			results, err := NewDetailPool(workers, nil).FetchAll(context.Background(), refs, fetch)
			require.NoError(t, err)
			require.Len(t, results, len(refs))
			for i, r := range results {
				assert.Equal(t, refs[i].SHA, r.Ref.SHA)
				assert.Equal(t, refs[i].SHA, r.Detail.Ref.SHA)
			}
		})
	}
}

func TestDetailPoolBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	fetch := func(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return echoFetch(ctx, ref)
	}

	pool := NewDetailPool(8, func() int { return 3 })
	_, err := pool.FetchAll(context.Background(), testRefs(30), fetch)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestDetailPoolUnitErrors(t *testing.T) {
	notFound := errors.New("not found")
	fetch := func(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
		if ref.SHA == "sha1" {
			return nil, notFound
		}
		return echoFetch(ctx, ref)
	}

	for _, workers := range []int{1, 3} {
		results, err := NewDetailPool(workers, nil).FetchAll(context.Background(), testRefs(3), fetch)
		require.NoError(t, err)
		assert.NoError(t, results[0].Err)
		assert.ErrorIs(t, results[1].Err, notFound)
		assert.Nil(t, results[1].Detail)
		assert.NoError(t, results[2].Err)
	}
}

func TestDetailPoolFatalErrorAborts(t *testing.T) {
	fetch := func(ctx context.Context, ref models.CommitRef) (*models.CommitDetail, error) {
		if ref.SHA == "sha2" {
			return nil, tokens.ErrAllTokensDisabled
		}
		return echoFetch(ctx, ref)
	}

	for _, workers := range []int{1, 3} {
		results, err := NewDetailPool(workers, nil).FetchAll(context.Background(), testRefs(5), fetch)
		assert.ErrorIs(t, err, tokens.ErrAllTokensDisabled)
		assert.Nil(t, results)
	}
}
