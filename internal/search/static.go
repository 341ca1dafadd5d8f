package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type staticConfig struct {
	File string `json:"file"`
}

// staticBackend serves documents from a JSON file, ranked by how many query
// runes occur in the document's segments. Intended for local runs.
type staticBackend struct {
	docs []Document
}

func init() {
	Register("static", createStaticBackend)
}

func createStaticBackend(args interface{}) (Backend, error) {
	cfg := &staticConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("read static index: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode static index: %w", err)
	}
	return NewStaticBackend(docs), nil
}

func NewStaticBackend(docs []Document) Backend {
	return &staticBackend{docs: docs}
}

func (s *staticBackend) Search(ctx context.Context, req Request) (*Response, error) {
	type hit struct {
		doc   Document
		score int
	}
	var hits []hit
	for _, doc := range s.docs {
		text := stringField(doc, "title") + stringField(doc, "link")
		for _, raw := range listField(doc, "extractive_segments") {
			if seg, ok := raw.(map[string]interface{}); ok {
				text += stringField(seg, "content")
			}
		}
		score := 0
		for _, r := range strings.Join(strings.Fields(req.Query), "") {
			if strings.ContainsRune(text, r) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{doc: doc, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if req.PageSize > 0 && len(hits) > req.PageSize {
		hits = hits[:req.PageSize]
	}
	out := &Response{Documents: make([]Document, 0, len(hits))}
	for _, h := range hits {
		out.Documents = append(out.Documents, h.doc)
	}
	return out, nil
}
