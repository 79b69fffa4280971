package risk

import (
	"fmt"
	"sync"

	"github.com/songzhibin97/deepdive/internal/models"
)

type BasicRiskManager struct {
	params   RiskParameters
	paramsMu sync.RWMutex
}

func NewBasicRiskManager(initialParams RiskParameters) *BasicRiskManager {
	return &BasicRiskManager{
		params: initialParams,
	}
}

func (rm *BasicRiskManager) Assess(record *models.ProjectRecord) models.RiskAssessment {
	rm.paramsMu.RLock()
	params := rm.params
	rm.paramsMu.RUnlock()

	flags := make([]string, 0)

	// 没有仓库数据即视为没有公开代码
	if record.TechnicalMetrics.Stars == nil {
		flags = append(flags, FlagNoRepository)
	}

	// 缺失的成交量按 0 处理, 同样触发
	if models.FloatOr(record.TokenMetrics.Volume24h, 0) < params.MinVolume24h {
		flags = append(flags, FlagLowVolume)
	}

	return models.RiskAssessment{
		Level: LevelFor(len(flags)),
		Flags: flags,
	}
}

func (rm *BasicRiskManager) SetRiskParameters(params *RiskParameters) error {
	if params == nil || params.MinVolume24h < 0 {
		return fmt.Errorf("invalid risk parameters: min volume must not be negative")
	}

	rm.paramsMu.Lock()
	rm.params = *params
	rm.paramsMu.Unlock()

	return nil
}

// LevelFor maps a flag count to a level: none is green, one or two yellow, more red.
func LevelFor(flagCount int) models.RiskLevel {
	switch {
	case flagCount <= 0:
		return models.RiskGreen
	case flagCount <= 2:
		return models.RiskYellow
	default:
		return models.RiskRed
	}
}
