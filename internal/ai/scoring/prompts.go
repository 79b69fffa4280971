package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/songzhibin97/deepdive/internal/models"
)

// 各生成调用的输出 token 上限
const (
	summaryTokens    = 150
	scoresTokens     = 200
	riskTokens       = 300
	thesisTokens     = 400
	comparisonTokens = 300
)

const notAvailable = "N/A"

func float(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func integer(p *int64) string {
	if p == nil {
		return notAvailable
	}
	return strconv.FormatInt(*p, 10)
}

func text(p *string) string {
	if p == nil || *p == "" {
		return notAvailable
	}
	return *p
}

func summaryPrompt(r *models.ProjectRecord) string {
	return fmt.Sprintf(`Analyze this crypto project and provide a concise 100-word executive summary:

Project: %s
Description: %s
Price: $%s
Market Cap: $%s
24h Volume: $%s
TVL: $%s

Provide a professional, objective summary covering: what the project does, key metrics, and notable observations.`,
		r.ProjectName,
		text(r.Description),
		float(r.TokenMetrics.Price),
		float(r.TokenMetrics.MarketCap),
		float(r.TokenMetrics.Volume24h),
		float(r.ProtocolMetrics.TVL),
	)
}

func scoresPrompt(r *models.ProjectRecord) string {
	return fmt.Sprintf(`Analyze this crypto project and provide scores (0-10) for these categories:
1. Team Credibility
2. Product-Market Fit
3. Tokenomics Health
4. Community Strength
5. Technical Development

Project Data:
- Name: %s
- GitHub Stars: %s
- Contributors: %s
- Commits (Last Month): %s
- Twitter Followers: %s
- Market Cap: $%s
- 24h Volume: $%s
- Circulating Supply: %s
- Max Supply: %s

Respond with JSON only, integers only:
{
  "team_credibility": <0-10>,
  "product_market_fit": <0-10>,
  "tokenomics_health": <0-10>,
  "community_strength": <0-10>,
  "technical_development": <0-10>
}`,
		r.ProjectName,
		integer(r.TechnicalMetrics.Stars),
		integer(r.TechnicalMetrics.Contributors),
		integer(r.TechnicalMetrics.CommitsLastMonth),
		integer(r.SocialMetrics.Followers),
		float(r.TokenMetrics.MarketCap),
		float(r.TokenMetrics.Volume24h),
		float(r.Tokenomics.CirculatingSupply),
		float(r.Tokenomics.MaxSupply),
	)
}

func riskPrompt(r *models.ProjectRecord) string {
	return fmt.Sprintf(`Analyze this crypto project for risk factors:

Project: %s
Market Cap: $%s
Volume 24h: $%s
Holders: %s
Last GitHub Commit: %s

Identify risk flags and assign overall risk level (green/yellow/red).

Respond with JSON only:
{
  "level": "green|yellow|red",
  "flags": ["flag1", "flag2", ...]
}`,
		r.ProjectName,
		float(r.TokenMetrics.MarketCap),
		float(r.TokenMetrics.Volume24h),
		integer(r.TokenMetrics.Holders),
		text(r.TechnicalMetrics.LastCommitDate),
	)
}

func thesisPrompt(r *models.ProjectRecord, scores models.ScoreSet) string {
	return fmt.Sprintf(`Create an investment thesis for this crypto project:

Project: %s
Total Score: %d/50
Market Cap: $%s
Community: %s followers

Provide:
1. Bull Case (3-4 key points)
2. Bear Case (3-4 key points)
3. Overall Recommendation (Strong Buy/Buy/Moderate Buy/Hold/Sell)

Respond with JSON only:
{
  "bull_case": ["point1", "point2", ...],
  "bear_case": ["point1", "point2", ...],
  "recommendation": "recommendation"
}`,
		r.ProjectName,
		scores.Total,
		float(r.TokenMetrics.MarketCap),
		integer(r.SocialMetrics.Followers),
	)
}

func comparisonPrompt(reports []models.AnalysisReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare these %d crypto projects and provide key differences:", len(reports))
	for _, r := range reports {
		fmt.Fprintf(&b, "\n- %s: Score %d/50", r.ProjectData.ProjectName, r.Scores.Total)
	}
	return b.String()
}
