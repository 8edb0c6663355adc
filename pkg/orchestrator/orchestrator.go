// Package orchestrator sequences intent processing, recommendation, and
// response composition as a small explicit state machine (spec.md §4.8):
// never a duck-typed dispatcher, per spec.md §9's redesign guidance.
package orchestrator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weldtech/sparky/pkg/compose"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/metrics"
	"github.com/weldtech/sparky/pkg/recommend"
)

var tracer = otel.Tracer("sparky.orchestrator")

// State names the four main states of spec.md §4.8's state graph plus its
// two fallback states and one terminal-error state.
type State string

const (
	StateProcessingIntent           State = "PROCESSING_INTENT"
	StateGeneratingRecommendations  State = "GENERATING_RECOMMENDATIONS"
	StateComposingResponse          State = "COMPOSING_RESPONSE"
	StateDone                       State = "DONE"
	StateIntentFallback             State = "INTENT_FALLBACK"
	StateNeo4jFallback              State = "NEO4J_FALLBACK"
	StateErrorResponse              State = "ERROR_RESPONSE"
)

// IntentProcessor is the C5 contract the orchestrator drives. It is an
// interface so the composition root can slot the cache-decorated
// processor in front of the real one.
type IntentProcessor interface {
	Process(ctx context.Context, query string, uc intent.UserContext) intent.ProcessedIntent
}

// Orchestrator is C8: it owns no domain logic of its own, only the
// sequencing, timeouts, tracing, and metrics around C5, C6, and C7.
type Orchestrator struct {
	processor    IntentProcessor
	engine       *recommend.Engine
	composer     *compose.Composer
	stageTimeout time.Duration
	log          *logrus.Logger
}

func New(processor IntentProcessor, engine *recommend.Engine, composer *compose.Composer, stageTimeout time.Duration, log *logrus.Logger) *Orchestrator {
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}
	return &Orchestrator{processor: processor, engine: engine, composer: composer, stageTimeout: stageTimeout, log: log}
}

// Trace records the wall-clock time spent in each visited state, returned
// alongside the response so callers (e.g. the HTTP handler) can surface it
// in the detailed-health/metrics surface without re-deriving it.
type Trace struct {
	States    []string
	Durations map[string]time.Duration
}

// Result bundles everything a single pipeline run produced: the composed
// response, the intermediate intent and recommendation outputs the HTTP
// layer renders into its requirements/metadata fields, and the trace.
type Result struct {
	Response        compose.Response
	Intent          intent.ProcessedIntent
	Recommendations recommend.ScoredRecommendations
	Trace           Trace
}

// Handle runs the full per-request state sequence (spec.md §4.8): it
// records a per-request trace, drives C5 -> C6 -> C7 in order, and never
// returns a hard error. A panic in the intent or recommendation stage is
// recovered and replaced by an empty result so the sequence continues; a
// panic in composition yields a minimal response with
// overall_confidence=0.0 and a follow-up question. None of these paths
// records the ERROR_RESPONSE state in the trace.
func (o *Orchestrator) Handle(ctx context.Context, query string, uc intent.UserContext, hints recommend.UserHints) Result {
	ctx, span := tracer.Start(ctx, "orchestrator.Handle")
	defer span.End()

	trace := Trace{Durations: map[string]time.Duration{}}
	enter := func(s State) func() {
		trace.States = append(trace.States, string(s))
		start := time.Now()
		return func() { trace.Durations[string(s)] = time.Since(start) }
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	done := enter(StateProcessingIntent)
	in := o.runIntentStage(stageCtx, span, query, uc)
	done()
	metrics.RecordStage("intent", trace.Durations[string(StateProcessingIntent)])

	if in.NeedsClarification && len(in.Processes) == 0 && in.Material == "" {
		trace.States = append(trace.States, string(StateIntentFallback))
		metrics.RecordFallback("intent_fallback")
	}

	done = enter(StateGeneratingRecommendations)
	req := recommend.Request{Intent: in, RawQuery: query, UserHints: hints}
	recs := o.runRecommendStage(stageCtx, span, req)
	done()
	metrics.RecordStage("recommend", trace.Durations[string(StateGeneratingRecommendations)])

	if recs.NeedsFollowUp {
		trace.States = append(trace.States, string(StateNeo4jFallback))
		metrics.RecordFallback("neo4j_fallback")
	}
	metrics.RecordTrinityFormationRate(recs.TrinityFormationRate)

	done = enter(StateComposingResponse)
	resp := o.runComposeStage(span, recs, in)
	done()
	metrics.RecordStage("compose", trace.Durations[string(StateComposingResponse)])

	trace.States = append(trace.States, string(StateDone))
	metrics.RecordQuery(string(in.ExpertiseMode))
	for _, band := range confidenceBandLabels(resp) {
		metrics.RecordConfidenceBand(band)
	}

	return Result{Response: resp, Intent: in, Recommendations: recs, Trace: trace}
}

func (o *Orchestrator) runIntentStage(ctx context.Context, parent trace.Span, query string, uc intent.UserContext) (in intent.ProcessedIntent) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithField("panic", r).Error("intent stage panicked, falling back to empty intent")
			parent.SetStatus(codes.Error, "intent stage panic")
			in = intent.ProcessedIntent{Query: query, NeedsClarification: true, ClarificationQuestions: []string{"Could you tell me more about what you're trying to weld?"}}
		}
	}()
	parent.AddEvent("intent.start", trace.WithAttributes(attribute.String("query", query)))
	return o.processor.Process(ctx, query, uc)
}

func (o *Orchestrator) runRecommendStage(ctx context.Context, parent trace.Span, req recommend.Request) (recs recommend.ScoredRecommendations) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithField("panic", r).Error("recommend stage panicked, falling back to empty recommendations")
			parent.SetStatus(codes.Error, "recommend stage panic")
			recs = recommend.ScoredRecommendations{NeedsFollowUp: true, Errors: []string{"recommend_stage_panic"}}
		}
	}()
	return o.engine.Recommend(ctx, req)
}

func (o *Orchestrator) runComposeStage(parent trace.Span, recs recommend.ScoredRecommendations, in intent.ProcessedIntent) (resp compose.Response) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithField("panic", r).Error("compose stage panicked, returning minimal error response")
			parent.SetStatus(codes.Error, "compose stage panic")
			resp = compose.Response{
				Title:             "We couldn't complete that request",
				Summary:           "Something went wrong while composing a response.",
				OverallConfidence: 0.0,
				NeedsFollowUp:     true,
				FollowUpQuestions: []string{"Could you rephrase your request?"},
			}
		}
	}()
	return o.composer.Compose(recs, in)
}

func confidenceBandLabels(resp compose.Response) []string {
	bands := make([]string, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		switch {
		case p.Score >= 0.8:
			bands = append(bands, "high")
		case p.Score >= 0.6:
			bands = append(bands, "medium")
		default:
			bands = append(bands, "low")
		}
	}
	return bands
}
