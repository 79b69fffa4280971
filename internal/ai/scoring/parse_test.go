package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/deepdive/internal/models"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `  {"a":1} `, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```\n", want: `{"a":1}`},
		{name: "unterminated one liner", in: "```{\"a\":1}", want: ""},
		{name: "prose is kept", in: `Here you go: {"a":1}`, want: `Here you go: {"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.ScoreSet
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"team_credibility": 7, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10}`,
			want: models.NewScoreSet(7, 8, 6, 9, 10),
		},
		{
			name: "supplied total is recomputed",
			raw:  "```json\n{\"team_credibility\": 1, \"product_market_fit\": 1, \"tokenomics_health\": 1, \"community_strength\": 1, \"technical_development\": 1, \"total\": 49}\n```",
			want: models.NewScoreSet(1, 1, 1, 1, 1),
		},
		{
			name:    "out of range",
			raw:     `{"team_credibility": 11, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10}`,
			wantErr: true,
		},
		{
			name:    "negative",
			raw:     `{"team_credibility": -1, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10}`,
			wantErr: true,
		},
		{
			name:    "missing category",
			raw:     `{"team_credibility": 5, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9}`,
			wantErr: true,
		},
		{
			name:    "non integer",
			raw:     `{"team_credibility": 7.5, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10}`,
			wantErr: true,
		},
		{
			name:    "unknown key",
			raw:     `{"team_credibility": 7, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10, "hype": 10}`,
			wantErr: true,
		},
		{
			name:    "prose",
			raw:     `I would rate this project highly.`,
			wantErr: true,
		},
		{
			name:    "trailing data",
			raw:     `{"team_credibility": 7, "product_market_fit": 8, "tokenomics_health": 6, "community_strength": 9, "technical_development": 10} {}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScores(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedResponse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Sum(), got.Total)
		})
	}
}

func TestParseRisk(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.RiskAssessment
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"level": "red", "flags": ["Anonymous team", "Unaudited contracts"]}`,
			want: models.RiskAssessment{Level: models.RiskRed, Flags: []string{"Anonymous team", "Unaudited contracts"}},
		},
		{
			name: "level independent of flag count",
			raw:  `{"level": "yellow", "flags": []}`,
			want: models.RiskAssessment{Level: models.RiskYellow, Flags: []string{}},
		},
		{
			name: "null flags",
			raw:  `{"level": "green", "flags": null}`,
			want: models.RiskAssessment{Level: models.RiskGreen, Flags: []string{}},
		},
		{name: "unknown level", raw: `{"level": "orange", "flags": []}`, wantErr: true},
		{name: "missing level", raw: `{"flags": ["x"]}`, wantErr: true},
		{name: "flags not a list", raw: `{"level": "red", "flags": "many"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRisk(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseThesis(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.InvestmentThesis
		wantErr bool
	}{
		{
			name: "valid free text recommendation",
			raw:  `{"bull_case": ["a", "b"], "bear_case": ["c"], "recommendation": " Accumulate on dips "}`,
			want: models.InvestmentThesis{BullCase: []string{"a", "b"}, BearCase: []string{"c"}, Recommendation: "Accumulate on dips"},
		},
		{name: "missing bear case", raw: `{"bull_case": ["a"], "recommendation": "Buy"}`, wantErr: true},
		{name: "empty recommendation", raw: `{"bull_case": [], "bear_case": [], "recommendation": ""}`, wantErr: true},
		{name: "empty body", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThesis(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
