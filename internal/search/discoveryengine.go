package search

import (
	"context"
	"fmt"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type discoveryConfig struct {
	ProjectID       string `json:"project_id"`
	Location        string `json:"location"`
	EngineID        string `json:"engine_id"`
	CredentialsFile string `json:"credentials_file"`
}

type discoveryBackend struct {
	client        *discoveryengine.SearchClient
	servingConfig string
}

func init() {
	Register("discoveryengine", createDiscoveryBackend)
}

func createDiscoveryBackend(args interface{}) (Backend, error) {
	cfg := &discoveryConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" || cfg.EngineID == "" {
		return nil, fmt.Errorf("discoveryengine project_id/engine_id are required")
	}
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	opts := []option.ClientOption{option.WithEndpoint(discoveryEndpoint(cfg.Location))}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := discoveryengine.NewSearchClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create discoveryengine client: %w", err)
	}
	return &discoveryBackend{
		client:        client,
		servingConfig: servingConfigPath(cfg.ProjectID, cfg.Location, cfg.EngineID),
	}, nil
}

func discoveryEndpoint(location string) string {
	if location == "global" {
		return "discoveryengine.googleapis.com:443"
	}
	return location + "-discoveryengine.googleapis.com:443"
}

func servingConfigPath(project, location, engine string) string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/collections/default_collection/engines/%s/servingConfigs/default_search",
		project, location, engine,
	)
}

func (b *discoveryBackend) Search(ctx context.Context, req Request) (*Response, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	sreq := &discoveryenginepb.SearchRequest{
		ServingConfig: b.servingConfig,
		Query:         req.Query,
		PageSize:      int32(pageSize),
		ContentSearchSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec{
			SummarySpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SummarySpec{
				SummaryResultCount: 1,
				IncludeCitations:   false,
				ModelPromptSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SummarySpec_ModelPromptSpec{
					Preamble: req.Preamble,
				},
			},
			SnippetSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SnippetSpec{
				ReturnSnippet: true,
			},
			ExtractiveContentSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_ExtractiveContentSpec{
				MaxExtractiveAnswerCount:     1,
				MaxExtractiveSegmentCount:    10,
				ReturnExtractiveSegmentScore: true,
			},
		},
	}
	it := b.client.Search(ctx, sreq)
	var results []*discoveryenginepb.SearchResponse_SearchResult
	if _, err := iterator.NewPager(it, pageSize, "").NextPage(&results); err != nil {
		return nil, fmt.Errorf("discoveryengine search: %w", err)
	}
	out := &Response{Documents: make([]Document, 0, len(results))}
	if raw, ok := it.Response.(*discoveryenginepb.SearchResponse); ok {
		out.Summary = raw.GetSummary().GetSummaryText()
	}
	for _, r := range results {
		data := r.GetDocument().GetDerivedStructData()
		if data == nil {
			out.Documents = append(out.Documents, Document{})
			continue
		}
		out.Documents = append(out.Documents, Document(data.AsMap()))
	}
	return out, nil
}
