package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/songzhibin97/deepdive/internal/models"
)

var ErrMalformedResponse = errors.New("malformed structured response")

// stripFences removes surrounding whitespace and a single markdown code fence. Nothing else is repaired.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// 去掉语言标记, 例如 ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decodeStrict(raw string, out interface{}) error {
	body := stripFences(raw)
	if body == "" {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedResponse)
	}
	return nil
}

// ParseScores accepts exactly the five integer categories in range. A supplied total is ignored.
func ParseScores(raw string) (models.ScoreSet, error) {
	var payload struct {
		TeamCredibility      *int `json:"team_credibility"`
		ProductMarketFit     *int `json:"product_market_fit"`
		TokenomicsHealth     *int `json:"tokenomics_health"`
		CommunityStrength    *int `json:"community_strength"`
		TechnicalDevelopment *int `json:"technical_development"`
		Total                *int `json:"total"`
	}
	if err := decodeStrict(raw, &payload); err != nil {
		return models.ScoreSet{}, err
	}

	fields := []struct {
		name  string
		value *int
	}{
		{"team_credibility", payload.TeamCredibility},
		{"product_market_fit", payload.ProductMarketFit},
		{"tokenomics_health", payload.TokenomicsHealth},
		{"community_strength", payload.CommunityStrength},
		{"technical_development", payload.TechnicalDevelopment},
	}
	for _, f := range fields {
		if f.value == nil {
			return models.ScoreSet{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, f.name)
		}
	}

	scores := models.NewScoreSet(
		*payload.TeamCredibility,
		*payload.ProductMarketFit,
		*payload.TokenomicsHealth,
		*payload.CommunityStrength,
		*payload.TechnicalDevelopment,
	)
	if err := scores.Validate(); err != nil {
		return models.ScoreSet{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return scores, nil
}

// ParseRisk accepts a known level and a list of flags.
func ParseRisk(raw string) (models.RiskAssessment, error) {
	var payload struct {
		Level *models.RiskLevel `json:"level"`
		Flags []string          `json:"flags"`
	}
	if err := decodeStrict(raw, &payload); err != nil {
		return models.RiskAssessment{}, err
	}

	if payload.Level == nil || !payload.Level.Valid() {
		return models.RiskAssessment{}, fmt.Errorf("%w: unknown risk level", ErrMalformedResponse)
	}
	if payload.Flags == nil {
		payload.Flags = []string{}
	}
	return models.RiskAssessment{Level: *payload.Level, Flags: payload.Flags}, nil
}

// ParseThesis accepts both case lists and a non-empty recommendation.
func ParseThesis(raw string) (models.InvestmentThesis, error) {
	var payload struct {
		BullCase       []string `json:"bull_case"`
		BearCase       []string `json:"bear_case"`
		Recommendation string   `json:"recommendation"`
	}
	if err := decodeStrict(raw, &payload); err != nil {
		return models.InvestmentThesis{}, err
	}

	if payload.BullCase == nil || payload.BearCase == nil {
		return models.InvestmentThesis{}, fmt.Errorf("%w: missing bull or bear case", ErrMalformedResponse)
	}
	if strings.TrimSpace(payload.Recommendation) == "" {
		return models.InvestmentThesis{}, fmt.Errorf("%w: missing recommendation", ErrMalformedResponse)
	}
	return models.InvestmentThesis{
		BullCase:       payload.BullCase,
		BearCase:       payload.BearCase,
		Recommendation: strings.TrimSpace(payload.Recommendation),
	}, nil
}
