package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

// NewFallbackGenerator tries each entry in order and returns the first
// successful response.
func NewFallbackGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Generator
	}
	return &fallbackGenerator{items: items}
}

type fallbackGenerator struct {
	items []GeneratorEntry
}

func (g *fallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed, trying next", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("generator not configured")
	}
	return "", lastErr
}

// BuildGenerators returns the plain and web-grounded generators for the
// given model chain.
func BuildGenerators(p IProvider, models []string) (plain IGenerator, grounded IGenerator) {
	plainItems := make([]GeneratorEntry, 0, len(models))
	groundedItems := make([]GeneratorEntry, 0, len(models))
	for _, m := range models {
		if m == "" {
			continue
		}
		plainItems = append(plainItems, GeneratorEntry{Name: m, Generator: NewGenerator(p, m)})
		groundedItems = append(groundedItems, GeneratorEntry{Name: m + "+search", Generator: NewWebGroundedGenerator(p, m)})
	}
	return NewFallbackGenerator(plainItems), NewFallbackGenerator(groundedItems)
}
