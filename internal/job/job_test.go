package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/worldsun-app/coopeartion-project/internal/catalog"
)

type fakeRebuilder struct {
	calls int
	err   error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (*catalog.Snapshot, error) {
	f.calls++
	return &catalog.Snapshot{}, f.err
}

func TestCatalogRefreshJob_Run(t *testing.T) {
	r := &fakeRebuilder{}
	j := NewCatalogRefreshJob(r)
	require.Equal(t, "catalog_refresh", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, r.calls)

	r.err = errors.New("listing failed")
	require.EqualError(t, j.Run(context.Background()), "listing failed")
}

func TestCatalogRefreshJob_NilHolder(t *testing.T) {
	require.NoError(t, NewCatalogRefreshJob(nil).Run(context.Background()))
}

type fakePruner struct {
	cutoff int64
}

func (f *fakePruner) DeleteBefore(cutoff int64) (int, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestEmbeddingCacheCleanupJob_DefaultsToThirtyDays(t *testing.T) {
	p := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(p, 0)
	now := time.Unix(1_700_000_000, 0)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour).Unix(), p.cutoff)
}

func TestEmbeddingCacheCleanupJob_CustomAge(t *testing.T) {
	p := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(p, 7)
	now := time.Unix(1_700_000_000, 0)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-7*24*time.Hour).Unix(), p.cutoff)
}
