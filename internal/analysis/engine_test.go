package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierbps/skill-compass/internal/ingest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(name, category, title string, taskID int, score float64) ingest.MergedRecord {
	return ingest.MergedRecord{
		ScoreRecord: ingest.ScoreRecord{Name: name, TaskID: taskID, Score: score},
		Category:    category,
		Title:       title,
		DisplayKey:  ingest.DisplayKey(category, title),
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	bundle := Compute(nil, nil, DefaultConfig(), testNow)

	assert.Empty(t, bundle.PersonSummary)
	assert.Empty(t, bundle.TaskSummary)
	assert.Empty(t, bundle.Records)
	assert.Nil(t, bundle.SkillCorrelation)
}

func TestCompute_SpecScenario(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("Ana", "Photo Editing", "Remove background", 1, 0.9),
		rec("Ana", "Vector/Technical", "Trace vector path", 2, 0.3),
		rec("Ben", "Vector/Technical", "Trace vector path", 2, 0.5),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	var ana PersonSummary
	for _, s := range bundle.PersonSummary {
		if s.Name == "Ana" {
			ana = s
		}
	}
	assert.InDelta(t, 0.6, ana.AvgScore, 1e-9)

	var photo TaskSummary
	for _, ts := range bundle.TaskSummary {
		if ts.DisplayKey == "[Photo Editing] Remove background" {
			photo = ts
		}
	}
	assert.Equal(t, 1, photo.ExpertCount)
	assert.Equal(t, 0, photo.BeginnerCount)
	assert.InDelta(t, 0.5, photo.RiskIndex, 1e-9)
	assert.True(t, photo.SinglePointOfFailure)
	assert.InDelta(t, 0.9*2, photo.CompetencyScore, 1e-9)
}

func TestCompute_Archetypes(t *testing.T) {
	records := []ingest.MergedRecord{
		// Alta: high average, perfectly steady
		rec("Alta", "A", "t1", 1, 0.9),
		rec("Alta", "A", "t2", 2, 0.9),
		// Bru: high average, swingy
		rec("Bru", "A", "t1", 1, 0.85),
		rec("Bru", "A", "t2", 2, 0.55),
		// Cal: low average, steady
		rec("Cal", "A", "t1", 1, 0.3),
		rec("Cal", "A", "t2", 2, 0.3),
		// Dru: low average, swingy
		rec("Dru", "A", "t1", 1, 0.1),
		rec("Dru", "A", "t2", 2, 0.5),
		// Eli: single score, volatility undefined
		rec("Eli", "A", "t1", 1, 0.7),
		// Fe: all zeros
		rec("Fe", "A", "t1", 1, 0),
		rec("Fe", "A", "t2", 2, 0),
	}
	persons := []ingest.Person{
		{Name: "Alta", TeamLeader: "Luis", SchedulerTag: true},
		{Name: "Bru", TeamLeader: "Luis"},
	}

	bundle := Compute(records, persons, DefaultConfig(), testNow)
	require.Len(t, bundle.PersonSummary, 6)

	byName := map[string]PersonSummary{}
	for _, s := range bundle.PersonSummary {
		byName[s.Name] = s
	}

	// median avg over {0.9, 0.7, 0.3, 0.3, 0.7, 0} = 0.5; median volatility
	// over the defined ones {0, 0.212, 0, 0.283, 0} = 0
	assert.Equal(t, ArchetypeVersatileLeader, byName["Alta"].Archetype)
	assert.Equal(t, ArchetypeNicheSpecialist, byName["Bru"].Archetype)
	assert.Equal(t, ArchetypeConsistentLearner, byName["Cal"].Archetype)
	assert.Equal(t, ArchetypeNeedsSupport, byName["Dru"].Archetype)
	assert.Equal(t, ArchetypeNeedsSupport, byName["Eli"].Archetype)
	assert.Equal(t, ArchetypeNeedsSupport, byName["Fe"].Archetype)

	// Volatility is undefined with a single score
	assert.Nil(t, byName["Eli"].Volatility)
	require.NotNil(t, byName["Bru"].Volatility)
	assert.InDelta(t, 0.2121, *byName["Bru"].Volatility, 1e-3)

	// Attributes joined from the person table; missing match means zero values
	assert.Equal(t, "Luis", byName["Alta"].TeamLeader)
	assert.True(t, byName["Alta"].Scheduler)
	assert.Equal(t, "", byName["Cal"].TeamLeader)
	assert.False(t, byName["Cal"].Scheduler)
}

func TestCompute_ArchetypeExhaustiveness(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("P1", "A", "t1", 1, 0.95),
		rec("P1", "A", "t2", 2, 0.9),
		rec("P2", "A", "t1", 1, 0.3),
		rec("P2", "A", "t2", 2, 0.35),
		rec("P3", "A", "t1", 1, 0.1),
		rec("P3", "A", "t2", 2, 0.9),
		rec("P4", "A", "t1", 1, 0.5),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	valid := map[string]bool{
		ArchetypeNeedsSupport:      true,
		ArchetypeVersatileLeader:   true,
		ArchetypeNicheSpecialist:   true,
		ArchetypeConsistentLearner: true,
	}
	for _, s := range bundle.PersonSummary {
		assert.True(t, valid[s.Archetype], "person %s got unknown archetype %q", s.Name, s.Archetype)
	}
}

func TestCompute_RiskIndexProperties(t *testing.T) {
	// Five beginners, no experts
	records := []ingest.MergedRecord{
		rec("P1", "A", "hard", 1, 0.1),
		rec("P2", "A", "hard", 1, 0.2),
		rec("P3", "A", "hard", 1, 0.3),
		rec("P4", "A", "hard", 1, 0.1),
		rec("P5", "A", "hard", 1, 0.2),
		// A task with neither beginners nor experts
		rec("P1", "A", "mid", 2, 0.5),
		rec("P2", "A", "mid", 2, 0.6),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	byKey := map[string]TaskSummary{}
	for _, ts := range bundle.TaskSummary {
		byKey[ts.DisplayKey] = ts
	}

	hard := byKey["[A] hard"]
	assert.Equal(t, 5, hard.BeginnerCount)
	assert.Equal(t, 0, hard.ExpertCount)
	assert.InDelta(t, 6.0, hard.RiskIndex, 1e-9)
	assert.False(t, hard.SinglePointOfFailure, "zero experts is not a single point of failure")

	mid := byKey["[A] mid"]
	assert.InDelta(t, 1.0, mid.RiskIndex, 1e-9)

	for _, ts := range bundle.TaskSummary {
		assert.Greater(t, ts.RiskIndex, 0.0)
	}

	// 6.0 > 2.0 default threshold, so only the hard task is flagged
	require.Len(t, bundle.RiskMatrix, 1)
	assert.Equal(t, "[A] hard", bundle.RiskMatrix[0].DisplayKey)

	// Radar is sorted highest risk first
	require.Len(t, bundle.RiskRadar, 2)
	assert.Equal(t, "[A] hard", bundle.RiskRadar[0].DisplayKey)
}

func TestCompute_BoundaryThresholds(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("P1", "A", "t", 1, 0.8),  // exactly expert
		rec("P2", "A", "t", 1, 0.4),  // exactly not a beginner
		rec("P3", "A", "t", 1, 0.39), // beginner
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)
	require.Len(t, bundle.TaskSummary, 1)

	ts := bundle.TaskSummary[0]
	assert.Equal(t, 1, ts.ExpertCount, "0.8 exactly is an expert")
	assert.Equal(t, 1, ts.BeginnerCount, "0.4 exactly is not a beginner")
}

func TestCompute_ExpirationRisk(t *testing.T) {
	in30 := testNow.AddDate(0, 0, 30)
	in200 := testNow.AddDate(0, 0, 200)
	past := testNow.AddDate(0, 0, -10)

	tests := []struct {
		name       string
		expiration *time.Time
		score      float64
		want       bool
	}{
		{name: "expert expiring inside window", expiration: &in30, score: 0.9, want: true},
		{name: "expert expiring beyond window", expiration: &in200, score: 0.9, want: false},
		{name: "expert with unknown expiration", expiration: nil, score: 0.9, want: false},
		{name: "already expired expert license", expiration: &past, score: 0.9, want: true},
		{name: "non-expert expiring inside window", expiration: &in30, score: 0.5, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []ingest.MergedRecord{rec("Ana", "A", "t", 1, tt.score)}
			persons := []ingest.Person{{Name: "Ana", LicenseExpiration: tt.expiration}}

			bundle := Compute(records, persons, DefaultConfig(), testNow)
			require.Len(t, bundle.TaskSummary, 1)
			assert.Equal(t, tt.want, bundle.TaskSummary[0].ExpirationRisk)
		})
	}
}

func TestCompute_OpportunityLens(t *testing.T) {
	records := []ingest.MergedRecord{
		// strong task, two experts
		rec("P1", "A", "strong", 1, 0.9),
		rec("P2", "A", "strong", 1, 0.85),
		// strong task, one expert
		rec("P1", "A", "solid", 2, 0.8),
		rec("P2", "A", "solid", 2, 0.7),
		// below the opportunity threshold
		rec("P1", "A", "weak", 3, 0.5),
		rec("P2", "A", "weak", 3, 0.4),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	require.Len(t, bundle.OpportunityLens, 2)
	// competency: strong = 0.875*3 = 2.625, solid = 0.75*2 = 1.5
	assert.Equal(t, "[A] strong", bundle.OpportunityLens[0].DisplayKey)
	assert.Equal(t, "[A] solid", bundle.OpportunityLens[1].DisplayKey)
}

func TestCompute_TalentPipeline(t *testing.T) {
	records := []ingest.MergedRecord{
		// critical task: avg 0.45 < 0.6
		rec("Mid", "A", "critical", 1, 0.7),
		rec("Low", "A", "critical", 1, 0.2),
		// easy task: avg above critical threshold
		rec("Mid", "A", "easy", 2, 0.65),
		rec("Low", "A", "easy", 2, 0.9),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	require.Len(t, bundle.TalentPipeline, 1)
	c := bundle.TalentPipeline[0]
	assert.Equal(t, "Mid", c.Name)
	assert.Equal(t, "[A] critical", c.DisplayKey)
	assert.InDelta(t, 0.7, c.Score, 1e-9)
	assert.NotEmpty(t, c.Archetype)
}

func TestCompute_TalentPipelineBandIsInclusive(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("Edge1", "A", "critical", 1, 0.6),
		rec("Edge2", "A", "critical", 1, 0.79),
		rec("Out", "A", "critical", 1, 0.8),
		rec("Filler", "A", "critical", 1, 0.1),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	names := make([]string, 0, len(bundle.TalentPipeline))
	for _, c := range bundle.TalentPipeline {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Edge2", "Edge1"}, names, "sorted by score descending, 0.8 excluded")
}

func TestCompute_HiddenStars(t *testing.T) {
	records := []ingest.MergedRecord{
		// Star: overall average 0.55, but 0.95 on a task the team fails at
		rec("Star", "A", "hard", 1, 0.95),
		rec("Star", "A", "easy", 2, 0.15),
		rec("Other", "A", "hard", 1, 0.1),
		rec("Other", "A", "easy", 2, 0.9),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)

	require.Len(t, bundle.HiddenStars, 1)
	assert.Equal(t, "Star", bundle.HiddenStars[0].Name)
	assert.Equal(t, "[A] hard", bundle.HiddenStars[0].DisplayKey)
}

func TestCompute_AdjustedRanking(t *testing.T) {
	records := []ingest.MergedRecord{
		// hard avg 0.5, easy avg 0.9
		rec("HardWorker", "A", "hard", 1, 0.8),
		rec("Cruiser", "A", "hard", 1, 0.2),
		rec("HardWorker", "A", "easy", 2, 0.85),
		rec("Cruiser", "A", "easy", 2, 0.95),
	}

	bundle := Compute(records, nil, DefaultConfig(), testNow)
	require.Len(t, bundle.AdjustedRanking, 2)

	// HardWorker: 0.8*0.5 + 0.85*0.1 = 0.485; Cruiser: 0.2*0.5 + 0.95*0.1 = 0.195
	assert.Equal(t, "HardWorker", bundle.AdjustedRanking[0].Name)
	assert.InDelta(t, 0.485, bundle.AdjustedRanking[0].AdjustedScore, 1e-9)
	assert.Equal(t, "Cruiser", bundle.AdjustedRanking[1].Name)
	assert.InDelta(t, 0.195, bundle.AdjustedRanking[1].AdjustedScore, 1e-9)
}

func TestCompute_SkillCorrelation(t *testing.T) {
	t.Run("perfect positive correlation", func(t *testing.T) {
		records := []ingest.MergedRecord{
			rec("P1", "CatA", "t1", 1, 0.2),
			rec("P1", "CatB", "t2", 2, 0.2),
			rec("P2", "CatA", "t1", 1, 0.8),
			rec("P2", "CatB", "t2", 2, 0.8),
		}

		bundle := Compute(records, nil, DefaultConfig(), testNow)
		m := bundle.SkillCorrelation
		require.NotNil(t, m)
		assert.Equal(t, []string{"CatA", "CatB"}, m.Categories)
		assert.InDelta(t, 1.0, m.Values[0][0], 1e-9)
		assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
		assert.InDelta(t, 1.0, m.Values[1][0], 1e-9)
	})

	t.Run("perfect negative correlation", func(t *testing.T) {
		records := []ingest.MergedRecord{
			rec("P1", "CatA", "t1", 1, 0.2),
			rec("P1", "CatB", "t2", 2, 0.8),
			rec("P2", "CatA", "t1", 1, 0.8),
			rec("P2", "CatB", "t2", 2, 0.2),
		}

		bundle := Compute(records, nil, DefaultConfig(), testNow)
		m := bundle.SkillCorrelation
		require.NotNil(t, m)
		assert.InDelta(t, -1.0, m.Values[0][1], 1e-9)
	})

	t.Run("single person yields no matrix", func(t *testing.T) {
		records := []ingest.MergedRecord{
			rec("P1", "CatA", "t1", 1, 0.2),
			rec("P1", "CatB", "t2", 2, 0.8),
		}

		bundle := Compute(records, nil, DefaultConfig(), testNow)
		assert.Nil(t, bundle.SkillCorrelation)
	})
}

func TestCompute_Idempotence(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("Ana", "Photo Editing", "Remove background", 1, 0.9),
		rec("Ana", "Vector/Technical", "Trace vector path", 2, 0.3),
		rec("Ben", "Vector/Technical", "Trace vector path", 2, 0.5),
		rec("Cris", "Photo Editing", "Remove background", 1, 0.65),
	}
	persons := []ingest.Person{
		{Name: "Ana", TeamLeader: "Luis"},
		{Name: "Ben", TeamLeader: "Luis"},
	}

	first := Compute(records, persons, DefaultConfig(), testNow)
	second := Compute(records, persons, DefaultConfig(), testNow)

	assert.Equal(t, first, second)
}

func TestCompute_DoesNotMutateInputs(t *testing.T) {
	records := []ingest.MergedRecord{
		rec("Zoe", "A", "t1", 1, 0.9),
		rec("Abe", "A", "t1", 1, 0.1),
	}
	before := append([]ingest.MergedRecord(nil), records...)

	Compute(records, nil, DefaultConfig(), testNow)

	assert.Equal(t, before, records)
}
