package models

// TokenMetrics 代币市场指标
type TokenMetrics struct {
	Price                 *float64 `json:"price"`
	MarketCap             *float64 `json:"market_cap"`
	FullyDilutedValuation *float64 `json:"fully_diluted_valuation"`
	Volume24h             *float64 `json:"volume_24h"`
	Holders               *int64   `json:"holders"`
	PriceChange24h        *float64 `json:"price_change_24h"`
	PriceChange7d         *float64 `json:"price_change_7d"`
}

// FillFrom copies every field of other into m that m does not already carry.
func (m *TokenMetrics) FillFrom(other TokenMetrics) {
	if m.Price == nil {
		m.Price = other.Price
	}
	if m.MarketCap == nil {
		m.MarketCap = other.MarketCap
	}
	if m.FullyDilutedValuation == nil {
		m.FullyDilutedValuation = other.FullyDilutedValuation
	}
	if m.Volume24h == nil {
		m.Volume24h = other.Volume24h
	}
	if m.Holders == nil {
		m.Holders = other.Holders
	}
	if m.PriceChange24h == nil {
		m.PriceChange24h = other.PriceChange24h
	}
	if m.PriceChange7d == nil {
		m.PriceChange7d = other.PriceChange7d
	}
}

// Tokenomics 代币经济模型
type Tokenomics struct {
	TotalSupply       *float64           `json:"total_supply"`
	CirculatingSupply *float64           `json:"circulating_supply"`
	MaxSupply         *float64           `json:"max_supply"`
	Distribution      map[string]float64 `json:"distribution"`
	VestingSchedule   *string            `json:"vesting_schedule"`
}

// SocialMetrics 社交指标
type SocialMetrics struct {
	Followers      *int64   `json:"twitter_followers"`
	EngagementRate *float64 `json:"twitter_engagement_rate"`
	SentimentScore *float64 `json:"sentiment_score"`
	RecentMentions *int64   `json:"recent_mentions"`
}

// TechnicalMetrics 开发活跃度指标
type TechnicalMetrics struct {
	Stars            *int64  `json:"github_stars"`
	Forks            *int64  `json:"github_forks"`
	CommitsLastMonth *int64  `json:"commits_last_month"`
	Contributors     *int64  `json:"contributors"`
	LastCommitDate   *string `json:"last_commit_date"`
}

// ProtocolMetrics DeFi 协议锁仓指标
type ProtocolMetrics struct {
	TVL          *float64           `json:"tvl"`
	ChainTVLs    map[string]float64 `json:"chain_tvls"`
	Change1d     *float64           `json:"change_1d"`
	Change7d     *float64           `json:"change_7d"`
	McapTVLRatio *float64           `json:"mcap_tvl_ratio"`
}

type TeamMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// TeamInfo is never populated by a provider yet.
type TeamInfo struct {
	Members          []TeamMember `json:"members"`
	LinkedinProfiles []string     `json:"linkedin_profiles"`
	PastProjects     []string     `json:"past_projects"`
}

// ProjectProfile holds the identity fields taken from the market-data entity.
type ProjectProfile struct {
	Symbol          *string `json:"symbol"`
	Website         *string `json:"website"`
	Description     *string `json:"description"`
	ContractAddress *string `json:"contract_address"`
}

// MarketSnapshot is everything the market-data provider yields from one entity fetch.
type MarketSnapshot struct {
	TokenMetrics TokenMetrics
	Tokenomics   Tokenomics
	Profile      ProjectProfile
}

// SocialProfile is the subset of a social account used for identity resolution.
type SocialProfile struct {
	ID          string
	Username    string
	Name        string
	Description string
}

// ProjectRecord 项目聚合数据
type ProjectRecord struct {
	ProjectName      string           `json:"project_name"`
	Symbol           *string          `json:"symbol"`
	ContractAddress  *string          `json:"contract_address"`
	Website          *string          `json:"website"`
	Description      *string          `json:"description"`
	TokenMetrics     TokenMetrics     `json:"token_metrics"`
	Tokenomics       Tokenomics       `json:"tokenomics"`
	SocialMetrics    SocialMetrics    `json:"social_metrics"`
	TechnicalMetrics TechnicalMetrics `json:"technical_metrics"`
	ProtocolMetrics  ProtocolMetrics  `json:"protocol_metrics"`
	TeamInfo         TeamInfo         `json:"team_info"`
}

// NewProjectRecord returns an empty record for name with JSON-friendly empty team lists.
func NewProjectRecord(name string) *ProjectRecord {
	return &ProjectRecord{
		ProjectName: name,
		TeamInfo: TeamInfo{
			Members:          []TeamMember{},
			LinkedinProfiles: []string{},
			PastProjects:     []string{},
		},
	}
}

// ApplyProfile sets identity fields from p, keeping an address the record already has.
func (r *ProjectRecord) ApplyProfile(p ProjectProfile) {
	r.Symbol = p.Symbol
	r.Website = p.Website
	r.Description = p.Description
	if r.ContractAddress == nil {
		r.ContractAddress = p.ContractAddress
	}
}

func Float(v float64) *float64 { return &v }

func Int(v int64) *int64 { return &v }

func String(v string) *string { return &v }

// FloatOr dereferences p, or returns def when p is nil.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// IntOr dereferences p, or returns def when p is nil.
func IntOr(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}
