package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/deepdive/internal/ai"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/risk"
)

// 按提示词开头区分各个部分, 预算相同的部分也能各自设定返回
var sectionPrefixes = []struct {
	section string
	prefix  string
}{
	{"summary", "Analyze this crypto project and provide a concise"},
	{"scores", "Analyze this crypto project and provide scores"},
	{"risk", "Analyze this crypto project for risk factors"},
	{"thesis", "Create an investment thesis"},
	{"comparison", "Compare these"},
}

func sectionOf(prompt string) string {
	for _, s := range sectionPrefixes {
		if strings.HasPrefix(prompt, s.prefix) {
			return s.section
		}
	}
	return ""
}

type mockGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	prompts   map[string]string
	budgets   map[string]int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prompts == nil {
		m.prompts = make(map[string]string)
		m.budgets = make(map[string]int)
	}
	section := sectionOf(prompt)
	m.prompts[section] = prompt
	m.budgets[section] = maxTokens
	if m.err != nil {
		return "", m.err
	}
	return m.responses[section], nil
}

func newTestEngine(g ai.Generator, m *metrics.Metrics) *Engine {
	return NewEngine(g, risk.NewBasicRiskManager(risk.DefaultParameters()), slog.New(slog.NewTextHandler(io.Discard, nil)), m)
}

func testRecord() *models.ProjectRecord {
	record := models.NewProjectRecord("Uniswap")
	record.TokenMetrics.Price = models.Float(6.5)
	record.TokenMetrics.MarketCap = models.Float(4e9)
	record.TokenMetrics.Volume24h = models.Float(5e7)
	record.TechnicalMetrics.Stars = models.Int(4200)
	record.SocialMetrics.Followers = models.Int(1200000)
	return record
}

func TestEngine_AIPath(t *testing.T) {
	g := &mockGenerator{responses: map[string]string{
		"summary":    "Uniswap is the leading DEX.",
		"scores":     `{"team_credibility": 9, "product_market_fit": 9, "tokenomics_health": 6, "community_strength": 8, "technical_development": 9}`,
		"risk":       "```json\n{\"level\": \"green\", \"flags\": [\"Fee switch uncertainty\"]}\n```",
		"thesis":     `{"bull_case": ["Deep liquidity"], "bear_case": ["Regulation"], "recommendation": "Buy"}`,
		"comparison": "Uniswap leads.",
	}}
	m := metrics.New(nil)
	e := newTestEngine(g, m)
	ctx := context.Background()
	record := testRecord()

	assert.Equal(t, "Uniswap is the leading DEX.", e.Summarize(ctx, record))

	scores := e.Score(ctx, record)
	assert.Equal(t, models.NewScoreSet(9, 9, 6, 8, 9), scores)

	// AI 给出的等级不受标记数量约束
	assessment := e.AssessRisk(ctx, record)
	assert.Equal(t, models.RiskGreen, assessment.Level)
	assert.Equal(t, []string{"Fee switch uncertainty"}, assessment.Flags)

	thesis := e.GenerateThesis(ctx, record, scores)
	assert.Equal(t, "Buy", thesis.Recommendation)
	assert.Contains(t, g.prompts["thesis"], "Total Score: 41/50")

	assert.Equal(t, "Uniswap leads.", e.CompareSummary(ctx, []models.AnalysisReport{{ProjectData: *record, Scores: scores}}))
	assert.Equal(t, map[string]int{
		"summary":    summaryTokens,
		"scores":     scoresTokens,
		"risk":       riskTokens,
		"thesis":     thesisTokens,
		"comparison": comparisonTokens,
	}, g.budgets)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("summary")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("scores")))
}

func TestEngine_BackendUnavailable(t *testing.T) {
	m := metrics.New(nil)
	e := newTestEngine(&mockGenerator{err: errors.New("dial tcp: connection refused")}, m)
	ctx := context.Background()
	record := testRecord()

	assert.Equal(t, FallbackSummary(record), e.Summarize(ctx, record))

	scores := e.Score(ctx, record)
	assert.Equal(t, models.NewScoreSet(5, 5, 5, 7, 7), scores)

	assessment := e.AssessRisk(ctx, record)
	assert.Equal(t, models.RiskGreen, assessment.Level)
	assert.Empty(t, assessment.Flags)

	thesis := e.GenerateThesis(ctx, record, scores)
	assert.Equal(t, "Moderate Buy", thesis.Recommendation)

	assert.Equal(t, FallbackComparison, e.CompareSummary(ctx, nil))

	for _, op := range []string{"summary", "scores", "risk", "thesis", "comparison"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues(op)), op)
	}
}

func TestEngine_MalformedResponses(t *testing.T) {
	g := &mockGenerator{responses: map[string]string{
		"summary": "",
		"scores":  `{"team_credibility": 12, "product_market_fit": 9, "tokenomics_health": 6, "community_strength": 8, "technical_development": 9}`,
		"risk":    `{"level": "amber", "flags": []}`,
		"thesis":  `Buy it.`,
	}}
	e := newTestEngine(g, nil)
	ctx := context.Background()
	record := models.NewProjectRecord("Sparse")

	assert.Equal(t, FallbackSummary(record), e.Summarize(ctx, record))
	assert.Equal(t, FallbackScores(record), e.Score(ctx, record))

	assessment := e.AssessRisk(ctx, record)
	assert.Equal(t, models.RiskYellow, assessment.Level)
	assert.Equal(t, []string{risk.FlagNoRepository, risk.FlagLowVolume}, assessment.Flags)

	assert.Equal(t, FallbackThesis(models.NewScoreSet(5, 5, 5, 5, 5)), e.GenerateThesis(ctx, record, models.NewScoreSet(5, 5, 5, 5, 5)))
}

func TestEngine_NilGenerator(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	record := models.NewProjectRecord("Offline")

	assert.Equal(t, FallbackSummary(record), e.Summarize(context.Background(), record))
	assert.Equal(t, FallbackScores(record), e.Score(context.Background(), record))
}

func TestEngine_FallbacksDeterministic(t *testing.T) {
	e := newTestEngine(&mockGenerator{err: ai.ErrNotConfigured}, nil)
	ctx := context.Background()
	record := testRecord()

	first := []interface{}{e.Summarize(ctx, record), e.Score(ctx, record), e.AssessRisk(ctx, record)}
	second := []interface{}{e.Summarize(ctx, record), e.Score(ctx, record), e.AssessRisk(ctx, record)}
	assert.Equal(t, first, second)

	scores := e.Score(ctx, record)
	assert.Equal(t, e.GenerateThesis(ctx, record, scores), e.GenerateThesis(ctx, record, scores))
}

func TestEngine_ComparisonPrompt(t *testing.T) {
	g := &mockGenerator{responses: map[string]string{"comparison": "A beats B."}}
	e := newTestEngine(g, nil)

	reports := []models.AnalysisReport{
		{ProjectData: *models.NewProjectRecord("Alpha"), Scores: models.NewScoreSet(8, 8, 8, 8, 8)},
		{ProjectData: *models.NewProjectRecord("Beta"), Scores: models.NewScoreSet(5, 5, 5, 5, 5)},
	}

	require.Equal(t, "A beats B.", e.CompareSummary(context.Background(), reports))
	prompt := g.prompts["comparison"]
	assert.True(t, strings.HasPrefix(prompt, "Compare these 2 crypto projects and provide key differences:"))
	assert.Contains(t, prompt, "\n- Alpha: Score 40/50")
	assert.Contains(t, prompt, "\n- Beta: Score 25/50")
}
