package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Archetype labels for the person classification.
const (
	ArchetypeNeedsSupport      = "Needs Support"
	ArchetypeVersatileLeader   = "Versatile Leader"
	ArchetypeNicheSpecialist   = "Niche Specialist"
	ArchetypeConsistentLearner = "Consistent Learner"
)

// Config holds the business thresholds shared across the engine's views.
// It is passed explicitly into Compute so tests and concurrent analyses
// can carry their own threshold sets.
type Config struct {
	// Skill level thresholds
	ExpertThreshold   float64 `yaml:"expert_threshold" json:"expert_threshold"`
	BeginnerThreshold float64 `yaml:"beginner_threshold" json:"beginner_threshold"`
	PipelineMin       float64 `yaml:"pipeline_min" json:"pipeline_min"`
	PipelineMax       float64 `yaml:"pipeline_max" json:"pipeline_max"`

	// Risk & opportunity thresholds
	CriticalAvgScore     float64 `yaml:"critical_avg_score" json:"critical_avg_score"`
	HighRiskIndex        float64 `yaml:"high_risk_index" json:"high_risk_index"`
	OpportunityThreshold float64 `yaml:"opportunity_threshold" json:"opportunity_threshold"`

	// Hidden stars: mid-band performers excelling on hard tasks
	HiddenStarMinAvg float64 `yaml:"hidden_star_min_avg" json:"hidden_star_min_avg"`
	HiddenStarMaxAvg float64 `yaml:"hidden_star_max_avg" json:"hidden_star_max_avg"`
	HiddenStarScore  float64 `yaml:"hidden_star_score" json:"hidden_star_score"`

	// License expiration forward window, in days
	ExpirationWindowDays int `yaml:"expiration_window_days" json:"expiration_window_days"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ExpertThreshold:      0.8,
		BeginnerThreshold:    0.4,
		PipelineMin:          0.6,
		PipelineMax:          0.79,
		CriticalAvgScore:     0.6,
		HighRiskIndex:        2.0,
		OpportunityThreshold: 0.75,
		HiddenStarMinAvg:     0.5,
		HiddenStarMaxAvg:     0.8,
		HiddenStarScore:      0.9,
		ExpirationWindowDays: 90,
	}
}

// LoadConfig overlays a YAML threshold file onto the defaults. A missing
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read thresholds %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse thresholds %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("thresholds %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects threshold sets that would make the views meaningless.
func (c Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"expert_threshold":      c.ExpertThreshold,
		"beginner_threshold":    c.BeginnerThreshold,
		"pipeline_min":          c.PipelineMin,
		"pipeline_max":          c.PipelineMax,
		"critical_avg_score":    c.CriticalAvgScore,
		"opportunity_threshold": c.OpportunityThreshold,
		"hidden_star_min_avg":   c.HiddenStarMinAvg,
		"hidden_star_score":     c.HiddenStarScore,
	} {
		if err := inUnit(name, v); err != nil {
			return err
		}
	}
	if c.PipelineMin > c.PipelineMax {
		return fmt.Errorf("pipeline_min %v exceeds pipeline_max %v", c.PipelineMin, c.PipelineMax)
	}
	if c.HiddenStarMinAvg > c.HiddenStarMaxAvg {
		return fmt.Errorf("hidden_star_min_avg %v exceeds hidden_star_max_avg %v", c.HiddenStarMinAvg, c.HiddenStarMaxAvg)
	}
	if c.HighRiskIndex <= 0 {
		return fmt.Errorf("high_risk_index must be positive, got %v", c.HighRiskIndex)
	}
	if c.ExpirationWindowDays < 0 {
		return fmt.Errorf("expiration_window_days must not be negative, got %d", c.ExpirationWindowDays)
	}
	return nil
}
