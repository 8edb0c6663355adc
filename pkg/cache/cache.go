// Package cache fronts the embedding service and the intent processor
// with a bounded-TTL Redis cache, so repeat queries skip recomputing
// vectors and re-running LLM extraction. A cache failure is never an
// error for the caller: the cache degrades to a miss and the wrapped
// service runs as usual.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/intent"
)

const (
	embeddingTTL = 24 * time.Hour
	intentTTL    = 15 * time.Minute
)

// Cache wraps a Redis client. A nil *Cache is valid and behaves as a
// permanent miss, so callers need no enabled/disabled branching.
type Cache struct {
	client *redis.Client
	log    *logrus.Logger
}

// New connects to Redis. The connection is verified eagerly so a
// misconfigured address surfaces at startup rather than as a stream of
// per-request misses.
func New(ctx context.Context, addr, password string, db int, log *logrus.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{client: client, log: log}, nil
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func queryKey(prefix, text string) string {
	sum := sha256.Sum256([]byte(text))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Debug("cache read failed, treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry undecodable, treating as miss")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
}

// EmbeddingService wraps an embedding.Service with read-through caching
// of query vectors. Product embeddings are not cached here: those are
// persisted on the Product node by the loader.
type EmbeddingService struct {
	inner embedding.Service
	cache *Cache
}

func WrapEmbedding(inner embedding.Service, cache *Cache) *EmbeddingService {
	return &EmbeddingService{inner: inner, cache: cache}
}

func (s *EmbeddingService) EmbedProduct(ctx context.Context, p domain.Product) ([]float32, string, error) {
	return s.inner.EmbedProduct(ctx, p)
}

func (s *EmbeddingService) EmbedQuery(ctx context.Context, queryText string) ([]float32, error) {
	key := queryKey("sparky:emb", queryText)
	var vec []float32
	if s.cache.get(ctx, key, &vec) && len(vec) == embedding.Dimension {
		return vec, nil
	}
	vec, err := s.inner.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, vec, embeddingTTL)
	return vec, nil
}

// IntentCache stores processed intents keyed by (query, language,
// organization) so identical repeat queries skip the LLM round trip. The
// key includes the context fields that change the extraction outcome.
type IntentCache struct {
	cache *Cache
}

func WrapIntent(cache *Cache) *IntentCache {
	return &IntentCache{cache: cache}
}

func (ic *IntentCache) Get(ctx context.Context, query string, uc intent.UserContext) (intent.ProcessedIntent, bool) {
	var in intent.ProcessedIntent
	ok := ic.cache.get(ctx, ic.key(query, uc), &in)
	return in, ok
}

func (ic *IntentCache) Put(ctx context.Context, query string, uc intent.UserContext, in intent.ProcessedIntent) {
	// Low-confidence intents are not worth pinning for the TTL window:
	// a retry with more context should re-run the full pipeline.
	if in.NeedsClarification {
		return
	}
	ic.cache.set(ctx, ic.key(query, uc), in, intentTTL)
}

func (ic *IntentCache) key(query string, uc intent.UserContext) string {
	return queryKey("sparky:intent", query+"\x00"+uc.PreferredLanguage+"\x00"+uc.Organization)
}

// IntentProcessor is the C5 contract the orchestrator consumes.
type IntentProcessor interface {
	Process(ctx context.Context, query string, uc intent.UserContext) intent.ProcessedIntent
}

// Processor decorates an intent processor with read-through caching.
type Processor struct {
	inner IntentProcessor
	ic    *IntentCache
}

func NewProcessor(inner IntentProcessor, ic *IntentCache) *Processor {
	return &Processor{inner: inner, ic: ic}
}

func (p *Processor) Process(ctx context.Context, query string, uc intent.UserContext) intent.ProcessedIntent {
	if in, ok := p.ic.Get(ctx, query, uc); ok {
		return in
	}
	in := p.inner.Process(ctx, query, uc)
	p.ic.Put(ctx, query, uc, in)
	return in
}
