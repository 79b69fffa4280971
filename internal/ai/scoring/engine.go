package scoring

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/deepdive/internal/ai"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/risk"
)

// Engine implements ai.Scorer. Each section is one generation call with its own fallback.
type Engine struct {
	generator ai.Generator
	risk      risk.RiskManager
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewEngine(generator ai.Generator, rm risk.RiskManager, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rm == nil {
		rm = risk.NewBasicRiskManager(risk.DefaultParameters())
	}
	return &Engine{
		generator: generator,
		risk:      rm,
		logger:    logger,
		metrics:   m,
	}
}

// generate calls the backend; a nil generator behaves like missing credentials.
func (e *Engine) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if e.generator == nil {
		return "", ai.ErrNotConfigured
	}
	text, err := e.generator.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func (e *Engine) fallback(op, project string, err error) {
	e.metrics.Fallback(op)
	e.logger.Warn("using fallback", "operation", op, "project", project, "error", err)
}

// Summarize implements ai.Scorer
func (e *Engine) Summarize(ctx context.Context, record *models.ProjectRecord) string {
	summary, err := e.generate(ctx, summaryPrompt(record), summaryTokens)
	if err != nil {
		e.fallback("summary", record.ProjectName, err)
		return FallbackSummary(record)
	}
	return summary
}

// Score implements ai.Scorer
func (e *Engine) Score(ctx context.Context, record *models.ProjectRecord) models.ScoreSet {
	raw, err := e.generate(ctx, scoresPrompt(record), scoresTokens)
	if err == nil {
		var scores models.ScoreSet
		if scores, err = ParseScores(raw); err == nil {
			return scores
		}
	}
	e.fallback("scores", record.ProjectName, err)
	return FallbackScores(record)
}

// AssessRisk implements ai.Scorer
func (e *Engine) AssessRisk(ctx context.Context, record *models.ProjectRecord) models.RiskAssessment {
	raw, err := e.generate(ctx, riskPrompt(record), riskTokens)
	if err == nil {
		var assessment models.RiskAssessment
		if assessment, err = ParseRisk(raw); err == nil {
			return assessment
		}
	}
	e.fallback("risk", record.ProjectName, err)
	return e.risk.Assess(record)
}

// GenerateThesis implements ai.Scorer
func (e *Engine) GenerateThesis(ctx context.Context, record *models.ProjectRecord, scores models.ScoreSet) models.InvestmentThesis {
	raw, err := e.generate(ctx, thesisPrompt(record, scores), thesisTokens)
	if err == nil {
		var thesis models.InvestmentThesis
		if thesis, err = ParseThesis(raw); err == nil {
			return thesis
		}
	}
	e.fallback("thesis", record.ProjectName, err)
	return FallbackThesis(scores)
}

// CompareSummary implements ai.Scorer
func (e *Engine) CompareSummary(ctx context.Context, reports []models.AnalysisReport) string {
	summary, err := e.generate(ctx, comparisonPrompt(reports), comparisonTokens)
	if err != nil {
		e.fallback("comparison", "", err)
		return FallbackComparison
	}
	return summary
}
