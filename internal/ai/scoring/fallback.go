package scoring

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	baseCategoryScore = 5
	categoryBonus     = 2

	starsThreshold     = 1000
	followersThreshold = 10000

	FallbackComparison = "Comparison of selected projects based on aggregated metrics."
)

var (
	fallbackBullCase = []string{
		"Active development community",
		"Growing market presence",
		"Strong fundamentals",
	}
	fallbackBearCase = []string{
		"Market volatility",
		"Competition in the space",
		"Regulatory uncertainty",
	}
)

// FallbackSummary formats price and market cap as currency, using 0 for missing values.
func FallbackSummary(r *models.ProjectRecord) string {
	price := models.FloatOr(r.TokenMetrics.Price, 0)
	marketCap := models.FloatOr(r.TokenMetrics.MarketCap, 0)

	return fmt.Sprintf(
		"%s is a cryptocurrency project with a current price of $%.4f and market cap of $%s. "+
			"The project shows activity in development and community engagement. "+
			"Further analysis is recommended for investment decisions.",
		r.ProjectName, price, humanize.Comma(int64(math.Round(marketCap))),
	)
}

// FallbackScores starts every category at 5 and rewards repository stars and followers.
func FallbackScores(r *models.ProjectRecord) models.ScoreSet {
	technical := baseCategoryScore
	if models.IntOr(r.TechnicalMetrics.Stars, 0) > starsThreshold {
		technical += categoryBonus
	}

	community := baseCategoryScore
	if models.IntOr(r.SocialMetrics.Followers, 0) > followersThreshold {
		community += categoryBonus
	}

	return models.NewScoreSet(baseCategoryScore, baseCategoryScore, baseCategoryScore, community, technical)
}

// Recommendation maps a total score to the fallback recommendation band.
func Recommendation(total int) string {
	switch {
	case total >= 40:
		return "Strong Buy"
	case total >= 35:
		return "Buy"
	case total >= 25:
		return "Moderate Buy"
	case total >= 20:
		return "Hold"
	default:
		return "Avoid"
	}
}

// FallbackThesis uses fixed generic cases; only the recommendation depends on the scores.
func FallbackThesis(scores models.ScoreSet) models.InvestmentThesis {
	return models.InvestmentThesis{
		BullCase:       append([]string(nil), fallbackBullCase...),
		BearCase:       append([]string(nil), fallbackBearCase...),
		Recommendation: Recommendation(scores.Total),
	}
}
