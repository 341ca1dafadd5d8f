package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey   string `json:"api_key"`
	Vertex   bool   `json:"vertex"`
	Project  string `json:"project"`
	Location string `json:"location"`
}

type geminiProvider struct {
	cfg geminiConfig

	newClient func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error)

	mu     sync.Mutex
	client *genai.Client
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	if !p.cfg.Vertex && p.cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  p.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.cfg.Vertex {
		cc = &genai.ClientConfig{
			Project:  p.cfg.Project,
			Location: p.cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}
	// Only a working client is kept; a failed attempt is retried on the next call.
	client, err := p.newClient(context.WithoutCancel(ctx), cc)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}
	var config *genai.GenerateContentConfig
	if opts.WebSearch {
		config = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		}
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		config,
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if resp.Embeddings == nil || len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := geminiConfig{}
	if err := decodeConfig(args, &cfg); err != nil {
		return nil, err
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Vertex {
		if cfg.Project == "" {
			return nil, fmt.Errorf("gemini.project is required for vertex backend")
		}
		if cfg.Location == "" {
			cfg.Location = "us-central1"
		}
	}
	return &geminiProvider{cfg: cfg, newClient: genai.NewClient}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
