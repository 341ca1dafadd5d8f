package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
)

// WrapLruCacheToEmbedder keeps recent query embeddings in memory so repeated
// product mentions in one discussion do not hit the embedding backend again.
// Concurrent misses for the same text share one backend call.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next   ai.IEmbedder
	cache  *expirable.LRU[string, []float32]
	flight singleflight.Group
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType))
		return cloneEmbedding(cached), nil
	}
	v, err, shared := l.flight.Do(key, func() (interface{}, error) {
		res, err := l.next.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		l.cache.Add(key, cloneEmbedding(res))
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logutil.GetLogger(ctx).Debug("embedding call shared", zap.String("task_type", taskType))
	}
	return cloneEmbedding(v.([]float32)), nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
