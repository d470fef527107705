package analysis

import "github.com/atelierbps/skill-compass/internal/ingest"

// PersonSummary is one person's aggregate view: mean score, score
// volatility and the archetype derived from both.
type PersonSummary struct {
	Name       string   `json:"name"`
	AvgScore   float64  `json:"avg_score"`
	Volatility *float64 `json:"volatility"` // nil with fewer than two scores
	Archetype  string   `json:"archetype"`
	TeamLeader string   `json:"team_leader"`
	Scheduler  bool     `json:"scheduler_tag"`
}

// TaskSummary is one task's aggregate risk view, keyed by display key.
type TaskSummary struct {
	DisplayKey           string  `json:"display_key"`
	AvgScore             float64 `json:"avg_score"`
	ExpertCount          int     `json:"expert_count"`
	BeginnerCount        int     `json:"beginner_count"`
	RiskIndex            float64 `json:"risk_index"`
	SinglePointOfFailure bool    `json:"is_single_point_of_failure"`
	CompetencyScore      float64 `json:"competency_score"`
	ExpirationRisk       bool    `json:"expiration_risk"`
}

// PipelineCandidate is a mid-tier performer on a team-critical task.
type PipelineCandidate struct {
	Name       string  `json:"name"`
	Archetype  string  `json:"archetype"`
	DisplayKey string  `json:"display_key"`
	Score      float64 `json:"score"`
}

// HiddenStar is a middling performer who excels at a task the team
// generally struggles with.
type HiddenStar struct {
	Name       string  `json:"name"`
	DisplayKey string  `json:"display_key"`
	Score      float64 `json:"score"`
}

// AdjustedRank weights each of a person's scores by task difficulty, so
// performing well on hard tasks ranks above performing well on easy ones.
type AdjustedRank struct {
	Name          string  `json:"name"`
	AdjustedScore float64 `json:"adjusted_score"`
}

// CorrelationMatrix is the pairwise Pearson correlation across skill
// categories, used for training-combo synergy suggestions.
type CorrelationMatrix struct {
	Categories []string    `json:"categories"`
	Values     [][]float64 `json:"values"`
}

// ThemeCount is one comment theme with its total keyword mentions.
type ThemeCount struct {
	Theme    string `json:"theme"`
	Mentions int    `json:"mentions"`
}

// Bundle is the full set of derived views one analysis run produces. It
// is the sole contract the presentation layer depends on.
type Bundle struct {
	PersonSummary    []PersonSummary       `json:"person_summary"`
	TaskSummary      []TaskSummary         `json:"task_summary"`
	RiskRadar        []TaskSummary         `json:"risk_radar"`
	RiskMatrix       []TaskSummary         `json:"risk_matrix"`
	OpportunityLens  []TaskSummary         `json:"opportunity_lens"`
	TalentPipeline   []PipelineCandidate   `json:"talent_pipeline"`
	HiddenStars      []HiddenStar          `json:"hidden_stars"`
	AdjustedRanking  []AdjustedRank        `json:"adjusted_ranking"`
	SkillCorrelation *CorrelationMatrix    `json:"skill_correlation,omitempty"`
	Records          []ingest.MergedRecord `json:"records"`
}
