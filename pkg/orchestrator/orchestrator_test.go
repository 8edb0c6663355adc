package orchestrator_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/pkg/compose"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore/graphstoretest"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/orchestrator"
	"github.com/weldtech/sparky/pkg/productsearch"
	"github.com/weldtech/sparky/pkg/recommend"
)

type staticProcessor struct {
	result intent.ProcessedIntent
}

func (p staticProcessor) Process(ctx context.Context, query string, uc intent.UserContext) intent.ProcessedIntent {
	out := p.result
	out.Query = query
	return out
}

type panickingProcessor struct{}

func (panickingProcessor) Process(ctx context.Context, query string, uc intent.UserContext) intent.ProcessedIntent {
	panic("boom")
}

type nullEmbedder struct{}

func (nullEmbedder) EmbedProduct(ctx context.Context, p domain.Product) ([]float32, string, error) {
	return make([]float32, 384), "", nil
}
func (nullEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return make([]float32, 384), nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newEngine(store *graphstoretest.Store) *recommend.Engine {
	collab := recommend.Collaborators{Store: store, Embedder: nullEmbedder{}, Search: productsearch.NewEngine(store)}
	return recommend.NewEngine(collab, nil, config.RecommendConfig{GoldenBackfillTarget: 7}, nil)
}

func populatedStore() *graphstoretest.Store {
	ps := domain.Product{GIN: "ps1", Name: "Warrior 400i", Category: domain.CategoryPowerSource, SalesFrequency: 40}
	fd := domain.Product{GIN: "fd1", Name: "RobustFeed U6", Category: domain.CategoryFeeder, SalesFrequency: 25}
	cl := domain.Product{GIN: "cl1", Name: "Cool 2", Category: domain.CategoryCooler, SalesFrequency: 15}
	return &graphstoretest.Store{
		Products: []domain.Product{ps, fd, cl},
		VectorResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryPowerSource: {{Product: ps, Score: 0.9, Source: "vector"}},
		},
		PathResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryFeeder: {{Product: fd, Score: 0.8, Source: "graph"}},
			domain.CategoryCooler: {{Product: cl, Score: 0.7, Source: "graph"}},
		},
	}
}

func TestHandleRunsAllStagesInOrder(t *testing.T) {
	proc := staticProcessor{result: intent.ProcessedIntent{
		DetectedLanguage: "en", ExpertiseMode: intent.ModeHybrid, Processes: []string{"MIG"}, Confidence: 0.8,
	}}
	orch := orchestrator.New(proc, newEngine(populatedStore()), compose.NewComposer(nil), time.Second, testLogger())

	result := orch.Handle(context.Background(), "MIG welding setup", intent.UserContext{}, recommend.UserHints{})

	wantPrefix := []string{
		string(orchestrator.StateProcessingIntent),
		string(orchestrator.StateGeneratingRecommendations),
		string(orchestrator.StateComposingResponse),
		string(orchestrator.StateDone),
	}
	if !reflect.DeepEqual(result.Trace.States, wantPrefix) {
		t.Errorf("unexpected state sequence: %v", result.Trace.States)
	}
	if len(result.Response.Packages) == 0 {
		t.Error("expected packages from a populated store")
	}
	for _, state := range wantPrefix[:3] {
		if _, ok := result.Trace.Durations[state]; !ok {
			t.Errorf("missing duration for state %s", state)
		}
	}
}

func TestHandleRecordsFallbackStateOnEmptyRecommendations(t *testing.T) {
	proc := staticProcessor{result: intent.ProcessedIntent{
		DetectedLanguage: "en", ExpertiseMode: intent.ModeHybrid, Confidence: 0.1, NeedsClarification: true,
	}}
	orch := orchestrator.New(proc, newEngine(&graphstoretest.Store{}), compose.NewComposer(nil), time.Second, testLogger())

	result := orch.Handle(context.Background(), "asdf qwerty", intent.UserContext{}, recommend.UserHints{})

	sawFallback := false
	for _, s := range result.Trace.States {
		if s == string(orchestrator.StateNeo4jFallback) {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Errorf("expected NEO4J_FALLBACK in the trace, got %v", result.Trace.States)
	}
	if !result.Response.NeedsFollowUp {
		t.Error("expected needs_follow_up=true")
	}
}

func TestHandleSurvivesPanickingStage(t *testing.T) {
	orch := orchestrator.New(panickingProcessor{}, newEngine(&graphstoretest.Store{}), compose.NewComposer(nil), time.Second, testLogger())

	result := orch.Handle(context.Background(), "anything", intent.UserContext{}, recommend.UserHints{})

	if result.Response.OverallConfidence != 0 {
		t.Errorf("expected confidence 0.0 after stage panic, got %f", result.Response.OverallConfidence)
	}
	if len(result.Response.FollowUpQuestions) == 0 {
		t.Error("a degraded response must still carry a follow-up question")
	}
}

func TestHandleIsDeterministicForFixedInputs(t *testing.T) {
	proc := staticProcessor{result: intent.ProcessedIntent{
		DetectedLanguage: "en", ExpertiseMode: intent.ModeHybrid, Processes: []string{"MIG"}, Confidence: 0.8,
	}}
	orch := orchestrator.New(proc, newEngine(populatedStore()), compose.NewComposer(nil), time.Second, testLogger())

	first := orch.Handle(context.Background(), "MIG welding setup", intent.UserContext{}, recommend.UserHints{})
	second := orch.Handle(context.Background(), "MIG welding setup", intent.UserContext{}, recommend.UserHints{})

	if len(first.Response.Packages) != len(second.Response.Packages) {
		t.Fatalf("package counts differ: %d vs %d", len(first.Response.Packages), len(second.Response.Packages))
	}
	for i := range first.Response.Packages {
		a, b := first.Response.Packages[i], second.Response.Packages[i]
		if a.PowerSource.GIN != b.PowerSource.GIN || a.Score != b.Score {
			t.Errorf("package %d differs between identical runs", i)
		}
	}
}
