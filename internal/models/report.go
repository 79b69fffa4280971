package models

import "fmt"

// InputType 用户输入类型
type InputType string

const (
	InputProjectName     InputType = "project_name"
	InputContractAddress InputType = "contract_address"
	InputSocialHandle    InputType = "twitter_handle"
)

// Valid reports whether t is one of the known input types.
func (t InputType) Valid() bool {
	switch t {
	case InputProjectName, InputContractAddress, InputSocialHandle:
		return true
	}
	return false
}

// InputIdentity is the classified form of a raw user input.
type InputIdentity struct {
	Type  InputType `json:"type"`
	Value string    `json:"value"`
}

const (
	MinCategoryScore = 0
	MaxCategoryScore = 10
)

// ScoreSet 五维评分, Total 始终由分项求和得到
type ScoreSet struct {
	TeamCredibility      int `json:"team_credibility"`
	ProductMarketFit     int `json:"product_market_fit"`
	TokenomicsHealth     int `json:"tokenomics_health"`
	CommunityStrength    int `json:"community_strength"`
	TechnicalDevelopment int `json:"technical_development"`
	Total                int `json:"total"`
}

// NewScoreSet builds a ScoreSet and computes its total.
func NewScoreSet(team, pmf, tokenomics, community, technical int) ScoreSet {
	s := ScoreSet{
		TeamCredibility:      team,
		ProductMarketFit:     pmf,
		TokenomicsHealth:     tokenomics,
		CommunityStrength:    community,
		TechnicalDevelopment: technical,
	}
	s.Total = s.Sum()
	return s
}

func (s ScoreSet) categories() []int {
	return []int{s.TeamCredibility, s.ProductMarketFit, s.TokenomicsHealth, s.CommunityStrength, s.TechnicalDevelopment}
}

// Sum adds the five categories, ignoring whatever Total holds.
func (s ScoreSet) Sum() int {
	total := 0
	for _, v := range s.categories() {
		total += v
	}
	return total
}

// Validate checks every category range and that Total matches the sum.
func (s ScoreSet) Validate() error {
	for _, v := range s.categories() {
		if v < MinCategoryScore || v > MaxCategoryScore {
			return fmt.Errorf("category score %d out of range [%d,%d]", v, MinCategoryScore, MaxCategoryScore)
		}
	}
	if s.Total != s.Sum() {
		return fmt.Errorf("total %d does not match category sum %d", s.Total, s.Sum())
	}
	return nil
}

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskGreen, RiskYellow, RiskRed:
		return true
	}
	return false
}

// RiskAssessment 风险评估结果
type RiskAssessment struct {
	Level RiskLevel `json:"level"`
	Flags []string  `json:"flags"`
}

// InvestmentThesis 投资逻辑
type InvestmentThesis struct {
	BullCase       []string `json:"bull_case"`
	BearCase       []string `json:"bear_case"`
	Recommendation string   `json:"recommendation"`
}

// AnalysisReport 单项目分析报告
type AnalysisReport struct {
	ProjectData       ProjectRecord    `json:"project_data"`
	ExecutiveSummary  string           `json:"executive_summary"`
	Scores            ScoreSet         `json:"scores"`
	RiskFlags         RiskAssessment   `json:"risk_flags"`
	InvestmentThesis  InvestmentThesis `json:"investment_thesis"`
	ReportURL         *string          `json:"report_url"`
	AnalysisTimestamp string           `json:"analysis_timestamp"`
}

// WithReportURL returns a copy of r carrying url; r itself is left untouched.
func (r AnalysisReport) WithReportURL(url string) AnalysisReport {
	r.ReportURL = &url
	return r
}

// ComparisonReport 多项目对比报告
type ComparisonReport struct {
	Projects           []AnalysisReport `json:"projects"`
	ComparativeSummary string           `json:"comparative_summary"`
	Requested          int              `json:"requested"`
	Succeeded          int              `json:"succeeded"`
	Failed             []string         `json:"failed"`
}

// QuickScore is the compact projection of an AnalysisReport.
type QuickScore struct {
	ProjectName string    `json:"project_name"`
	TotalScore  int       `json:"total_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Price       *float64  `json:"price"`
	MarketCap   *float64  `json:"market_cap"`
}

// QuickScoreOf projects r into a QuickScore.
func QuickScoreOf(r *AnalysisReport) QuickScore {
	return QuickScore{
		ProjectName: r.ProjectData.ProjectName,
		TotalScore:  r.Scores.Total,
		RiskLevel:   r.RiskFlags.Level,
		Price:       r.ProjectData.TokenMetrics.Price,
		MarketCap:   r.ProjectData.TokenMetrics.MarketCap,
	}
}
