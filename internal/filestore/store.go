package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/worldsun-app/coopeartion-project/internal/config"
)

type Object struct {
	Key string
}

// Store lists the source documents backing the search index.
type Store interface {
	Type() string
	List(ctx context.Context) ([]Object, error)
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	store, err := factory(cfg.Data)
	if err != nil {
		return nil, err
	}
	return withFilter(store, cfg.Extensions), nil
}

// filteredStore hides placeholder objects and, when extensions are set, any
// object whose extension is not listed. Extensions compare case-insensitively.
type filteredStore struct {
	Store
	exts map[string]bool
}

func withFilter(s Store, extensions []string) Store {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &filteredStore{Store: s, exts: exts}
}

func (f *filteredStore) List(ctx context.Context) ([]Object, error) {
	objs, err := f.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := objs[:0]
	for _, o := range objs {
		base := path.Base(o.Key)
		if strings.HasPrefix(base, ".") {
			continue
		}
		if len(f.exts) > 0 && !f.exts[strings.ToLower(path.Ext(base))] {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
