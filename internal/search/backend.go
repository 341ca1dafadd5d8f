package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/worldsun-app/coopeartion-project/internal/config"
)

// Request is one call against the document index. The backend is asked for
// a one-result summary, a snippet and up to ten scored extractive segments
// per document.
type Request struct {
	Query    string
	PageSize int
	Preamble string
}

// Document is the derived-data mapping of one search hit: "title",
// "document_title", "link" and "extractive_segments".
type Document map[string]interface{}

type Response struct {
	Documents []Document
	Summary   string
}

type Backend interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

type Factory func(args interface{}) (Backend, error)

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

func NewBackend(cfg config.SearchConfig) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("search.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("search backend config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode search config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode search config: %w", err)
	}
	return nil
}
