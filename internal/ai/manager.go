package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ManagerConfig struct {
	Timeout int
}

// Manager owns the generators used by the advisor. Answer returns the model
// text unchanged; Summarize trims it and rejects empty output.
type Manager struct {
	generator IGenerator
	grounded  IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, grounded IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		grounded:  grounded,
		embedder:  embedder,
		cfg:       cfg,
	}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) Embedder() IEmbedder {
	return m.embedder
}

func (m *Manager) Answer(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.generator.Generate(ctx, prompt)
}

func (m *Manager) AnswerWithWebSearch(ctx context.Context, prompt string) (string, error) {
	if m.grounded == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.grounded.Generate(ctx, prompt)
}

func (m *Manager) Summarize(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return context.WithCancel(ctx)
}
