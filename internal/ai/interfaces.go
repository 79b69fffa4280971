package ai

import (
	"context"
	"errors"

	"github.com/songzhibin97/deepdive/internal/models"
)

var (
	ErrNotConfigured = errors.New("text generation backend not configured")
	ErrEmptyResponse = errors.New("text generation backend returned no choices")
)

// Generator asks a text model for a completion under a fixed analyst persona
type Generator interface {
	// Generate fails on missing credentials, transport errors, non-2xx replies and empty choices
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Scorer turns a project record into the derived report sections. It never fails;
// backend problems degrade to deterministic fallbacks.
type Scorer interface {
	// Summarize writes the executive summary
	Summarize(ctx context.Context, record *models.ProjectRecord) string

	// Score rates the five categories
	Score(ctx context.Context, record *models.ProjectRecord) models.ScoreSet

	// AssessRisk flags risks and assigns a level
	AssessRisk(ctx context.Context, record *models.ProjectRecord) models.RiskAssessment

	// GenerateThesis builds bull and bear cases plus a recommendation
	GenerateThesis(ctx context.Context, record *models.ProjectRecord, scores models.ScoreSet) models.InvestmentThesis

	// CompareSummary narrates the differences between analyzed projects
	CompareSummary(ctx context.Context, reports []models.AnalysisReport) string
}
