package analysis

import (
	"sort"
	"time"

	"github.com/atelierbps/skill-compass/internal/ingest"
)

// Compute derives every report view from the merged fact table and the
// person attribute table. It is pure with respect to its inputs: nothing
// is mutated, outputs are freshly built, and ordering is deterministic
// (documented sort keys, ties by first appearance in the fact table).
// An empty fact table yields an empty bundle, not an error.
func Compute(records []ingest.MergedRecord, persons []ingest.Person, cfg Config, now time.Time) Bundle {
	if len(records) == 0 {
		return Bundle{}
	}

	personIndex := make(map[string]ingest.Person, len(persons))
	for _, p := range persons {
		personIndex[p.Name] = p
	}

	personSummary := buildPersonSummaries(records, personIndex)
	taskSummary := buildTaskSummaries(records, personIndex, cfg, now)

	taskAvg := make(map[string]float64, len(taskSummary))
	for _, t := range taskSummary {
		taskAvg[t.DisplayKey] = t.AvgScore
	}

	return Bundle{
		PersonSummary:    personSummary,
		TaskSummary:      taskSummary,
		RiskRadar:        sortByRiskIndex(taskSummary),
		RiskMatrix:       filterHighRisk(sortByRiskIndex(taskSummary), cfg),
		OpportunityLens:  opportunityLens(taskSummary, cfg),
		TalentPipeline:   talentPipeline(records, taskAvg, personSummary, cfg),
		HiddenStars:      hiddenStars(records, taskAvg, personSummary, cfg),
		AdjustedRanking:  adjustedRanking(records, taskAvg),
		SkillCorrelation: skillCorrelation(records),
		Records:          records,
	}
}

// buildPersonSummaries classifies each person against the team's own
// distribution: the medians of average score and volatility are the
// decision thresholds, recomputed on every run.
func buildPersonSummaries(records []ingest.MergedRecord, personIndex map[string]ingest.Person) []PersonSummary {
	names, scoresByName := groupScoresByName(records)

	summaries := make([]PersonSummary, 0, len(names))
	var avgs, vols []float64
	for _, name := range names {
		scores := scoresByName[name]
		s := PersonSummary{Name: name, AvgScore: mean(scores)}
		if sd, ok := sampleStdDev(scores); ok {
			s.Volatility = &sd
			vols = append(vols, sd)
		}
		avgs = append(avgs, s.AvgScore)
		summaries = append(summaries, s)
	}

	medianAvg := median(avgs)
	medianVol := median(vols)

	for i := range summaries {
		summaries[i].Archetype = classify(summaries[i], medianAvg, medianVol)

		if p, ok := personIndex[summaries[i].Name]; ok {
			summaries[i].TeamLeader = p.TeamLeader
			summaries[i].Scheduler = p.SchedulerTag
		}
	}
	return summaries
}

// classify assigns exactly one archetype. At the median boundary the >=
// and <= comparisons deliberately favor the stronger labels.
func classify(s PersonSummary, medianAvg, medianVol float64) string {
	if s.Volatility == nil || s.AvgScore == 0 {
		return ArchetypeNeedsSupport
	}
	vol := *s.Volatility
	switch {
	case s.AvgScore >= medianAvg && vol <= medianVol:
		return ArchetypeVersatileLeader
	case s.AvgScore >= medianAvg && vol > medianVol:
		return ArchetypeNicheSpecialist
	case s.AvgScore < medianAvg && vol <= medianVol:
		return ArchetypeConsistentLearner
	default:
		return ArchetypeNeedsSupport
	}
}

func buildTaskSummaries(records []ingest.MergedRecord, personIndex map[string]ingest.Person, cfg Config, now time.Time) []TaskSummary {
	var keys []string
	byKey := make(map[string][]ingest.MergedRecord)
	for _, r := range records {
		if _, seen := byKey[r.DisplayKey]; !seen {
			keys = append(keys, r.DisplayKey)
		}
		byKey[r.DisplayKey] = append(byKey[r.DisplayKey], r)
	}

	deadline := now.AddDate(0, 0, cfg.ExpirationWindowDays)

	summaries := make([]TaskSummary, 0, len(keys))
	for _, key := range keys {
		group := byKey[key]

		var scores []float64
		experts, beginners := 0, 0
		expirationRisk := false
		for _, r := range group {
			scores = append(scores, r.Score)
			if r.Score >= cfg.ExpertThreshold {
				experts++
				// An expert whose license expires inside the window puts
				// the task's coverage at risk.
				if p, ok := personIndex[r.Name]; ok && p.LicenseExpiration != nil && p.LicenseExpiration.Before(deadline) {
					expirationRisk = true
				}
			}
			if r.Score < cfg.BeginnerThreshold {
				beginners++
			}
		}

		avg := mean(scores)
		summaries = append(summaries, TaskSummary{
			DisplayKey:           key,
			AvgScore:             avg,
			ExpertCount:          experts,
			BeginnerCount:        beginners,
			RiskIndex:            float64(beginners+1) / float64(experts+1),
			SinglePointOfFailure: experts == 1,
			CompetencyScore:      avg * float64(experts+1),
			ExpirationRisk:       expirationRisk,
		})
	}
	return summaries
}

// sortByRiskIndex returns the summaries ordered highest risk first.
func sortByRiskIndex(summaries []TaskSummary) []TaskSummary {
	out := append([]TaskSummary(nil), summaries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskIndex > out[j].RiskIndex })
	return out
}

func filterHighRisk(sorted []TaskSummary, cfg Config) []TaskSummary {
	out := make([]TaskSummary, 0, len(sorted))
	for _, t := range sorted {
		if t.RiskIndex > cfg.HighRiskIndex {
			out = append(out, t)
		}
	}
	return out
}

// opportunityLens surfaces tasks the team is collectively strong at,
// deepest expertise first.
func opportunityLens(summaries []TaskSummary, cfg Config) []TaskSummary {
	out := make([]TaskSummary, 0, len(summaries))
	for _, t := range summaries {
		if t.AvgScore >= cfg.OpportunityThreshold {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompetencyScore > out[j].CompetencyScore })
	return out
}

// talentPipeline finds mid-tier performers on tasks the team as a whole
// struggles with: the natural upskilling candidates.
func talentPipeline(records []ingest.MergedRecord, taskAvg map[string]float64, personSummary []PersonSummary, cfg Config) []PipelineCandidate {
	archetypeByName := make(map[string]string, len(personSummary))
	for _, s := range personSummary {
		archetypeByName[s.Name] = s.Archetype
	}

	var out []PipelineCandidate
	for _, r := range records {
		if taskAvg[r.DisplayKey] >= cfg.CriticalAvgScore {
			continue
		}
		if r.Score < cfg.PipelineMin || r.Score > cfg.PipelineMax {
			continue
		}
		out = append(out, PipelineCandidate{
			Name:       r.Name,
			Archetype:  archetypeByName[r.Name],
			DisplayKey: r.DisplayKey,
			Score:      r.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// hiddenStars finds people with a middling overall average who
// nonetheless excel at a task the team generally struggles with.
func hiddenStars(records []ingest.MergedRecord, taskAvg map[string]float64, personSummary []PersonSummary, cfg Config) []HiddenStar {
	midTier := make(map[string]bool, len(personSummary))
	for _, s := range personSummary {
		if s.AvgScore >= cfg.HiddenStarMinAvg && s.AvgScore < cfg.HiddenStarMaxAvg {
			midTier[s.Name] = true
		}
	}

	var out []HiddenStar
	for _, r := range records {
		if !midTier[r.Name] {
			continue
		}
		if taskAvg[r.DisplayKey] >= cfg.CriticalAvgScore {
			continue
		}
		if r.Score < cfg.HiddenStarScore {
			continue
		}
		out = append(out, HiddenStar{Name: r.Name, DisplayKey: r.DisplayKey, Score: r.Score})
	}
	return out
}

// adjustedRanking sums each person's scores weighted by task difficulty
// (one minus the task's team average), highest total first.
func adjustedRanking(records []ingest.MergedRecord, taskAvg map[string]float64) []AdjustedRank {
	var names []string
	totals := make(map[string]float64)
	for _, r := range records {
		if _, seen := totals[r.Name]; !seen {
			names = append(names, r.Name)
		}
		totals[r.Name] += r.Score * (1 - taskAvg[r.DisplayKey])
	}

	out := make([]AdjustedRank, 0, len(names))
	for _, name := range names {
		out = append(out, AdjustedRank{Name: name, AdjustedScore: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AdjustedScore > out[j].AdjustedScore })
	return out
}

// skillCorrelation pivots person x category to mean score, fills missing
// combinations with the global mean to keep the matrix dense, and returns
// the pairwise Pearson correlation across categories.
func skillCorrelation(records []ingest.MergedRecord) *CorrelationMatrix {
	names, _ := groupScoresByName(records)

	categorySet := make(map[string]bool)
	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)
	var globalSum float64
	for _, r := range records {
		categorySet[r.Category] = true
		if sums[r.Name] == nil {
			sums[r.Name] = make(map[string]float64)
			counts[r.Name] = make(map[string]int)
		}
		sums[r.Name][r.Category] += r.Score
		counts[r.Name][r.Category]++
		globalSum += r.Score
	}
	globalMean := globalSum / float64(len(records))

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	if len(names) < 2 || len(categories) == 0 {
		return nil
	}

	// Dense person x category matrix, column-major by category.
	columns := make([][]float64, len(categories))
	for ci, cat := range categories {
		col := make([]float64, len(names))
		for ni, name := range names {
			if n := counts[name][cat]; n > 0 {
				col[ni] = sums[name][cat] / float64(n)
			} else {
				col[ni] = globalMean
			}
		}
		columns[ci] = col
	}

	values := make([][]float64, len(categories))
	for i := range categories {
		values[i] = make([]float64, len(categories))
		for j := range categories {
			if i == j {
				values[i][j] = 1
				continue
			}
			values[i][j] = pearson(columns[i], columns[j])
		}
	}

	return &CorrelationMatrix{Categories: categories, Values: values}
}

// groupScoresByName groups scores per person, preserving the order names
// first appear in the fact table.
func groupScoresByName(records []ingest.MergedRecord) ([]string, map[string][]float64) {
	var names []string
	byName := make(map[string][]float64)
	for _, r := range records {
		if _, seen := byName[r.Name]; !seen {
			names = append(names, r.Name)
		}
		byName[r.Name] = append(byName[r.Name], r.Score)
	}
	return names, byName
}
