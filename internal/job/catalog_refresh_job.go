package job

import (
	"context"

	"github.com/worldsun-app/coopeartion-project/internal/catalog"
)

type CatalogRebuilder interface {
	Rebuild(ctx context.Context) (*catalog.Snapshot, error)
}

// CatalogRefreshJob re-lists the object store and republishes the catalog
// snapshot. A failed rebuild leaves the previous snapshot serving.
type CatalogRefreshJob struct {
	holder CatalogRebuilder
}

func NewCatalogRefreshJob(holder CatalogRebuilder) *CatalogRefreshJob {
	return &CatalogRefreshJob{holder: holder}
}

func (j *CatalogRefreshJob) Name() string {
	return "catalog_refresh"
}

func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	if j.holder == nil {
		return nil
	}
	_, err := j.holder.Rebuild(ctx)
	return err
}
