// Package showcase serves the list of pre-analyzed sample projects.
package showcase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/songzhibin97/deepdive/internal/models"
)

// Project 展示列表中的一项
type Project struct {
	Name     string           `json:"name"`
	Symbol   string           `json:"symbol"`
	Score    int              `json:"score"`
	Risk     models.RiskLevel `json:"risk"`
	Category string           `json:"category"`
}

var samples = []Project{
	{Name: "Ethereum", Symbol: "ETH", Score: 48, Risk: models.RiskGreen, Category: "Layer 1"},
	{Name: "Render", Symbol: "RNDR", Score: 42, Risk: models.RiskGreen, Category: "Infrastructure"},
	{Name: "Chainlink", Symbol: "LINK", Score: 45, Risk: models.RiskGreen, Category: "Oracle"},
	{Name: "Uniswap", Symbol: "UNI", Score: 43, Risk: models.RiskGreen, Category: "DEX"},
	{Name: "Aave", Symbol: "AAVE", Score: 44, Risk: models.RiskGreen, Category: "Lending"},
	{Name: "Polygon", Symbol: "MATIC", Score: 41, Risk: models.RiskYellow, Category: "Layer 2"},
	{Name: "Arbitrum", Symbol: "ARB", Score: 40, Risk: models.RiskYellow, Category: "Layer 2"},
	{Name: "Optimism", Symbol: "OP", Score: 39, Risk: models.RiskYellow, Category: "Layer 2"},
	{Name: "Solana", Symbol: "SOL", Score: 38, Risk: models.RiskYellow, Category: "Layer 1"},
	{Name: "Avalanche", Symbol: "AVAX", Score: 37, Risk: models.RiskYellow, Category: "Layer 1"},
	{Name: "The Graph", Symbol: "GRT", Score: 36, Risk: models.RiskYellow, Category: "Infrastructure"},
	{Name: "Lido", Symbol: "LDO", Score: 42, Risk: models.RiskGreen, Category: "Staking"},
	{Name: "Maker", Symbol: "MKR", Score: 43, Risk: models.RiskGreen, Category: "Stablecoin"},
	{Name: "Curve", Symbol: "CRV", Score: 40, Risk: models.RiskYellow, Category: "DEX"},
	{Name: "Synthetix", Symbol: "SNX", Score: 38, Risk: models.RiskYellow, Category: "Derivatives"},
	{Name: "Injective", Symbol: "INJ", Score: 37, Risk: models.RiskYellow, Category: "Layer 1"},
	{Name: "Celestia", Symbol: "TIA", Score: 36, Risk: models.RiskYellow, Category: "Modular Chain"},
	{Name: "Pendle", Symbol: "PENDLE", Score: 35, Risk: models.RiskYellow, Category: "Yield Trading"},
	{Name: "GMX", Symbol: "GMX", Score: 39, Risk: models.RiskYellow, Category: "Perps"},
	{Name: "Rocket Pool", Symbol: "RPL", Score: 38, Risk: models.RiskYellow, Category: "Staking"},
}

// Samples returns a copy of the built-in list.
func Samples() []Project {
	return append([]Project(nil), samples...)
}

// Library reads the showcase file on every call, so edits show up without a restart.
type Library struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

func NewLibrary(fs afero.Fs, path string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{fs: fs, path: path, logger: logger}
}

// Projects returns the file's projects, or the samples when the file is missing or unreadable.
func (l *Library) Projects() []Project {
	projects, err := l.load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Error("Error loading showcase projects", "path", l.path, "error", err)
		}
		return Samples()
	}
	return projects
}

func (l *Library) load() ([]Project, error) {
	if l.path == "" {
		return nil, os.ErrNotExist
	}
	raw, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, err
	}
	projects := []Project{}
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode showcase file: %w", err)
	}
	return projects, nil
}
