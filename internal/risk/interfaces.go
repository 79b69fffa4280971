package risk

import (
	"github.com/songzhibin97/deepdive/internal/models"
)

// RiskManager derives deterministic risk assessments from aggregated project data
type RiskManager interface {
	// Assess flags the record and derives the level from the flag count
	Assess(record *models.ProjectRecord) models.RiskAssessment

	// SetRiskParameters replaces the thresholds used by Assess
	SetRiskParameters(params *RiskParameters) error
}

// RiskParameters 风险参数配置
type RiskParameters struct {
	MinVolume24h float64 `json:"min_volume_24h"` // 低于该成交量视为流动性不足
}

// DefaultParameters returns the thresholds the fallback path has always used.
func DefaultParameters() RiskParameters {
	return RiskParameters{MinVolume24h: 100000}
}

const (
	FlagNoRepository = "No public GitHub repository found"
	FlagLowVolume    = "Low trading volume"
)
