// Package catalog maps free-text product mentions onto the documents held in
// the bulk object store that backs the search index.
package catalog

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/filestore"
)

type Entry struct {
	StorageKey string
	CleanName  string
}

type Lister interface {
	List(ctx context.Context) ([]filestore.Object, error)
}

// CleanName returns the last path element of key without its extension.
func CleanName(key string) string {
	base := path.Base(key)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// BuildCatalog lists every object in the store. A listing failure yields an
// empty catalog, so retrieval degrades to unscoped search, together with the
// error so a holder can keep serving what it already has.
func BuildCatalog(ctx context.Context, lister Lister) ([]Entry, error) {
	objs, err := lister.List(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("build catalog failed, using empty catalog", zap.Error(err))
		return nil, fmt.Errorf("list catalog objects: %w", err)
	}
	entries := make([]Entry, 0, len(objs))
	seen := make(map[string]bool, len(objs))
	for _, obj := range objs {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := CleanName(obj.Key)
		if name == "" || seen[obj.Key] {
			continue
		}
		seen[obj.Key] = true
		entries = append(entries, Entry{StorageKey: obj.Key, CleanName: name})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CleanName < entries[j].CleanName
	})
	logutil.GetLogger(ctx).Info("catalog built", zap.Int("objects", len(objs)), zap.Int("entries", len(entries)))
	return entries, nil
}
