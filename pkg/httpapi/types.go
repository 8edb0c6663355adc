// Package httpapi is the versioned HTTP surface of the recommendation
// core (spec.md §6): the chat entry point, the enterprise recommendation
// endpoint, the health probes, and the rolling metrics window.
package httpapi

import (
	"github.com/weldtech/sparky/pkg/compose"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/orchestrator"
	"github.com/weldtech/sparky/pkg/recommend"
)

// SparkyMessageRequest is the chat entry payload: POST /sparky/message.
type SparkyMessageRequest struct {
	Message   string `json:"message" validate:"required,min=1,max=2000"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Language  string `json:"language" validate:"omitempty,len=2"`
}

// SparkyMessageResponse is the chat entry reply.
type SparkyMessageResponse struct {
	Response          string        `json:"response"`
	Requirements      Requirements  `json:"requirements"`
	Packages          []PackageView `json:"packages"`
	Confidence        float64       `json:"confidence"`
	ConversationID    string        `json:"conversation_id"`
	StepByStepBuilder []string      `json:"step_by_step_builder,omitempty"`
	FollowUpQuestions []string      `json:"follow_up_questions,omitempty"`
}

// Requirements is the extracted-intent view returned to the chat client.
type Requirements struct {
	Processes        []string `json:"processes,omitempty"`
	Material         string   `json:"material,omitempty"`
	CurrentAmps      *float64 `json:"current_amps,omitempty"`
	Voltage          *float64 `json:"voltage,omitempty"`
	ThicknessMM      *float64 `json:"thickness_mm,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	Application      string   `json:"application,omitempty"`
	MentionedProduct string   `json:"mentioned_product,omitempty"`
	ExpertiseMode    string   `json:"expertise_mode"`
	DetectedLanguage string   `json:"detected_language"`
}

// EnterpriseRecommendationRequest is POST /enterprise/recommendations.
type EnterpriseRecommendationRequest struct {
	Query               string         `json:"query" validate:"required,min=1,max=2000"`
	SessionID           string         `json:"session_id"`
	UserContext         UserContextDTO `json:"user_context"`
	MaxResults          int            `json:"max_results" validate:"gte=0,lte=50"`
	IncludeExplanations bool           `json:"include_explanations"`
}

// UserContextDTO mirrors spec.md §4.5's user_context input.
type UserContextDTO struct {
	UserID            string   `json:"user_id"`
	PreferredLanguage string   `json:"preferred_language" validate:"omitempty,len=2"`
	ExpertiseHistory  []string `json:"expertise_history"`
	PreviousQueries   []string `json:"previous_queries"`
	IndustryContext   string   `json:"industry_context"`
	Organization      string   `json:"organization"`
	Role              string   `json:"role"`
}

func (d UserContextDTO) toDomain(sessionID string) intent.UserContext {
	return intent.UserContext{
		UserID:            d.UserID,
		SessionID:         sessionID,
		PreferredLanguage: d.PreferredLanguage,
		ExpertiseHistory:  d.ExpertiseHistory,
		PreviousQueries:   d.PreviousQueries,
		IndustryContext:   d.IndustryContext,
		Organization:      d.Organization,
		Role:              d.Role,
	}
}

// ProductView is the wire rendering of a single product.
type ProductView struct {
	GIN      string   `json:"gin"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    *float64 `json:"price,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// PackageView is the wire rendering of a scored package.
type PackageView struct {
	PowerSource      ProductView   `json:"power_source"`
	Feeder           ProductView   `json:"feeder"`
	Cooler           ProductView   `json:"cooler"`
	Accessories      []ProductView `json:"accessories,omitempty"`
	Score            float64       `json:"score"`
	TrinityCompliant bool          `json:"trinity_compliance"`
	TotalPrice       float64       `json:"total_price"`
}

// EnterpriseRecommendationResponse is the full reply of the enterprise
// endpoint.
type EnterpriseRecommendationResponse struct {
	Title                  string        `json:"title"`
	Summary                string        `json:"summary"`
	DetailedExplanation    string        `json:"detailed_explanation,omitempty"`
	TechnicalNotes         []string      `json:"technical_notes,omitempty"`
	Packages               []PackageView `json:"packages"`
	NextSteps              []string      `json:"next_steps,omitempty"`
	RelatedQuestions       []string      `json:"related_questions,omitempty"`
	ExplanationLevel       string        `json:"explanation_level"`
	ResponseLanguage       string        `json:"response_language"`
	OverallConfidence      float64       `json:"overall_confidence"`
	NeedsFollowUp          bool          `json:"needs_follow_up"`
	FollowUpQuestions      []string      `json:"follow_up_questions,omitempty"`
	SatisfactionPrediction float64       `json:"satisfaction_prediction"`
	TrinityFormationRate   float64       `json:"trinity_formation_rate"`
	Strategy               string        `json:"strategy"`
	Algorithms             []string      `json:"algorithms,omitempty"`
	ConversationID         string        `json:"conversation_id"`
	ProcessingTimeMS       int64         `json:"processing_time_ms"`
}

func productView(p domain.Product) ProductView {
	return ProductView{
		GIN:      p.GIN,
		Name:     p.Name,
		Category: string(p.Category),
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}

func packageViews(packages []recommend.Package, max int) []PackageView {
	if max > 0 && len(packages) > max {
		packages = packages[:max]
	}
	out := make([]PackageView, 0, len(packages))
	for _, pkg := range packages {
		view := PackageView{
			PowerSource:      productView(pkg.PowerSource),
			Feeder:           productView(pkg.Feeder),
			Cooler:           productView(pkg.Cooler),
			Score:            pkg.Score,
			TrinityCompliant: pkg.TrinityCompliance,
			TotalPrice:       pkg.TotalPrice(),
		}
		for _, a := range pkg.Accessories {
			view.Accessories = append(view.Accessories, productView(a))
		}
		out = append(out, view)
	}
	return out
}

func requirementsView(in intent.ProcessedIntent) Requirements {
	return Requirements{
		Processes:        in.Processes,
		Material:         in.Material,
		CurrentAmps:      in.CurrentAmps,
		Voltage:          in.Voltage,
		ThicknessMM:      in.ThicknessMM,
		Industry:         in.Industry,
		Application:      in.Application,
		MentionedProduct: in.MentionedProduct,
		ExpertiseMode:    string(in.ExpertiseMode),
		DetectedLanguage: in.DetectedLanguage,
	}
}

func enterpriseResponse(result orchestrator.Result, conversationID string, maxResults int, includeExplanations bool, elapsedMS int64) EnterpriseRecommendationResponse {
	resp := result.Response
	out := EnterpriseRecommendationResponse{
		Title:                  resp.Title,
		Summary:                resp.Summary,
		Packages:               packageViews(resp.Packages, maxResults),
		NextSteps:              resp.NextSteps,
		RelatedQuestions:       resp.RelatedQuestions,
		ExplanationLevel:       string(resp.ExplanationLevel),
		ResponseLanguage:       resp.ResponseLanguage,
		OverallConfidence:      resp.OverallConfidence,
		NeedsFollowUp:          resp.NeedsFollowUp,
		FollowUpQuestions:      resp.FollowUpQuestions,
		SatisfactionPrediction: resp.SatisfactionPrediction,
		TrinityFormationRate:   result.Recommendations.TrinityFormationRate,
		Strategy:               string(result.Recommendations.Metadata.Strategy),
		Algorithms:             result.Recommendations.Metadata.Algorithms,
		ConversationID:         conversationID,
		ProcessingTimeMS:       elapsedMS,
	}
	if includeExplanations {
		out.DetailedExplanation = resp.DetailedExplanation
		out.TechnicalNotes = resp.TechnicalNotes
	}
	return out
}

// chatText renders the composed response as a single chat message: the
// summary, or the title when the summary is empty. Guided steps are not
// included here; they travel in the response's StepByStepBuilder field.
func chatText(resp compose.Response) string {
	if resp.Summary == "" {
		return resp.Title
	}
	return resp.Summary
}
