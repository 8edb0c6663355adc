package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/weldtech/sparky/pkg/cache"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/intent"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) EmbedProduct(ctx context.Context, p domain.Product) ([]float32, string, error) {
	c.calls++
	return make([]float32, embedding.Dimension), "", nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	c.calls++
	vec := make([]float32, embedding.Dimension)
	vec[0] = 1.0
	return vec, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.New(context.Background(), mr.Addr(), "", 0, logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEmbedQueryIsCachedAcrossCalls(t *testing.T) {
	c := newTestCache(t)
	inner := &countingEmbedder{}
	svc := cache.WrapEmbedding(inner, c)

	ctx := context.Background()
	first, err := svc.EmbedQuery(ctx, "TIG welder for stainless")
	require.NoError(t, err)
	second, err := svc.EmbedQuery(ctx, "TIG welder for stainless")
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls, "second call should be served from cache")
	require.Equal(t, first, second)
}

func TestEmbedQueryDistinctTextsMiss(t *testing.T) {
	c := newTestCache(t)
	inner := &countingEmbedder{}
	svc := cache.WrapEmbedding(inner, c)

	ctx := context.Background()
	_, err := svc.EmbedQuery(ctx, "MIG welder")
	require.NoError(t, err)
	_, err = svc.EmbedQuery(ctx, "TIG welder")
	require.NoError(t, err)

	require.Equal(t, 2, inner.calls)
}

func TestNilCacheBehavesAsMiss(t *testing.T) {
	inner := &countingEmbedder{}
	svc := cache.WrapEmbedding(inner, nil)

	_, err := svc.EmbedQuery(context.Background(), "anything")
	require.NoError(t, err)
	_, err = svc.EmbedQuery(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestIntentCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ic := cache.WrapIntent(c)
	ctx := context.Background()

	uc := intent.UserContext{PreferredLanguage: "en", Organization: "acme"}
	in := intent.ProcessedIntent{
		Query:            "MIG setup for aluminum",
		DetectedLanguage: "en",
		ExpertiseMode:    intent.ModeHybrid,
		Processes:        []string{"MIG"},
		Confidence:       0.8,
	}

	_, ok := ic.Get(ctx, in.Query, uc)
	require.False(t, ok, "expected a miss before Put")

	ic.Put(ctx, in.Query, uc, in)
	got, ok := ic.Get(ctx, in.Query, uc)
	require.True(t, ok)
	require.Equal(t, in.Processes, got.Processes)
	require.Equal(t, in.ExpertiseMode, got.ExpertiseMode)
}

func TestIntentCacheSkipsClarificationIntents(t *testing.T) {
	c := newTestCache(t)
	ic := cache.WrapIntent(c)
	ctx := context.Background()

	uc := intent.UserContext{}
	in := intent.ProcessedIntent{Query: "asdf", NeedsClarification: true, Confidence: 0.2}

	ic.Put(ctx, in.Query, uc, in)
	_, ok := ic.Get(ctx, in.Query, uc)
	require.False(t, ok, "clarification-needed intents must not be cached")
}

func TestIntentCacheKeyIncludesOrganization(t *testing.T) {
	c := newTestCache(t)
	ic := cache.WrapIntent(c)
	ctx := context.Background()

	in := intent.ProcessedIntent{Query: "MIG setup", Confidence: 0.9}
	ic.Put(ctx, in.Query, intent.UserContext{Organization: "acme"}, in)

	_, ok := ic.Get(ctx, in.Query, intent.UserContext{Organization: "other"})
	require.False(t, ok, "different organization must not share cache entries")
}
