package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/pkg/compose"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore/graphstoretest"
	"github.com/weldtech/sparky/pkg/httpapi"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/orchestrator"
	"github.com/weldtech/sparky/pkg/productsearch"
	"github.com/weldtech/sparky/pkg/recommend"
	"github.com/weldtech/sparky/pkg/vocabulary"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func populatedStore() *graphstoretest.Store {
	ps := domain.Product{GIN: "ps1", Name: "Warrior 400i", Category: domain.CategoryPowerSource, SalesFrequency: 50}
	fd := domain.Product{GIN: "fd1", Name: "RobustFeed U6", Category: domain.CategoryFeeder, SalesFrequency: 30}
	cl := domain.Product{GIN: "cl1", Name: "Cool 2", Category: domain.CategoryCooler, SalesFrequency: 20}
	return &graphstoretest.Store{
		Products: []domain.Product{ps, fd, cl},
		VectorResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryPowerSource: {{Product: ps, Score: 0.9, Source: "vector"}},
		},
		PathResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryFeeder: {{Product: fd, Score: 0.8, Source: "graph"}},
			domain.CategoryCooler: {{Product: cl, Score: 0.7, Source: "graph"}},
		},
		PagerankResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryPowerSource: {{Product: ps, Score: 1, Source: "sales"}},
			domain.CategoryFeeder:      {{Product: fd, Score: 1, Source: "sales"}},
			domain.CategoryCooler:      {{Product: cl, Score: 1, Source: "sales"}},
		},
	}
}

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedProduct(ctx context.Context, p domain.Product) ([]float32, string, error) {
	return make([]float32, 384), "", nil
}

func (fixedEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return make([]float32, 384), nil
}

func newTestServer(t *testing.T, store *graphstoretest.Store) *httpapi.Server {
	t.Helper()

	vocab, err := vocabulary.Load("../../configs/welding_processes.yaml")
	require.NoError(t, err)
	modeCfg, err := intent.LoadModeDetectionConfig("../../configs/mode_detection.yaml")
	require.NoError(t, err)

	processor := intent.NewProcessor(vocab, modeCfg, nil, testLogger())
	collab := recommend.Collaborators{
		Store:    store,
		Embedder: fixedEmbedder{},
		Search:   productsearch.NewEngine(store),
	}
	recCfg := config.RecommendConfig{
		ExpertModeMultiplier:   1.1,
		GoldenBackfillTarget:   7,
		StageTimeout:           10 * time.Second,
		PreferredManufacturers: []string{"ESAB"},
	}
	engine := recommend.NewEngine(collab, modeCfg, recCfg, nil)
	composer := compose.NewComposer(recCfg.PreferredManufacturers)
	orch := orchestrator.New(processor, engine, composer, recCfg.StageTimeout, testLogger())

	return httpapi.New(httpapi.Config{Port: "0"}, orch, nil, store, nil, testLogger())
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSparkyMessageReturnsPackages(t *testing.T) {
	srv := newTestServer(t, populatedStore())

	rec := postJSON(t, srv.Handler(), "/api/v1/sparky/message", map[string]any{
		"message": "Looking for MIG welding setup for aluminum automotive parts",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpapi.SparkyMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Packages)
	require.NotEmpty(t, resp.ConversationID)
	require.Equal(t, "HYBRID", resp.Requirements.ExpertiseMode)
	require.Equal(t, "en", resp.Requirements.DetectedLanguage)
}

func TestSparkyMessageRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t, populatedStore())
	rec := postJSON(t, srv.Handler(), "/api/v1/sparky/message", map[string]any{"message": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSparkyMessageGibberishStillAnswers200(t *testing.T) {
	srv := newTestServer(t, &graphstoretest.Store{})

	rec := postJSON(t, srv.Handler(), "/api/v1/sparky/message", map[string]any{"message": "asdf qwerty"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpapi.SparkyMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Packages)
	require.NotEmpty(t, resp.FollowUpQuestions)
	require.Less(t, resp.Confidence, 0.3)
}

func TestEnterpriseRecommendationsRespectsMaxResults(t *testing.T) {
	srv := newTestServer(t, populatedStore())

	rec := postJSON(t, srv.Handler(), "/api/v1/enterprise/recommendations", map[string]any{
		"query":                "MIG welding setup for aluminum",
		"max_results":          1,
		"include_explanations": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpapi.EnterpriseRecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.LessOrEqual(t, len(resp.Packages), 1)
	require.NotEmpty(t, resp.Strategy)
	require.NotEmpty(t, resp.ConversationID)
}

func TestReadinessReflectsGraphStoreHealth(t *testing.T) {
	store := populatedStore()
	srv := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/health/readiness", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	store.HealthErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnterpriseMetricsReportsWindow(t *testing.T) {
	srv := newTestServer(t, populatedStore())

	for i := 0; i < 3; i++ {
		postJSON(t, srv.Handler(), "/api/v1/sparky/message", map[string]any{
			"message": "MIG welding setup for aluminum",
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enterprise/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap httpapi.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.EqualValues(t, 3, snap.TotalRequests)
	require.Equal(t, 1.0, snap.SuccessRate)
}
