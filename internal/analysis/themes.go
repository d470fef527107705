package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// commentTheme pairs a theme label with its keyword alternation. The
// themes are a fixed set tuned to the vocabulary that actually shows up
// in the team's "Specific Needs" column.
type commentTheme struct {
	label   string
	pattern *regexp.Regexp
}

var commentThemes = []commentTheme{
	{"Training/Guidance", regexp.MustCompile(`(?i)training|learn|course|session|refresher|guide|help|practice`)},
	{"Isometric Skills", regexp.MustCompile(`(?i)isometric|iso`)},
	{"Photo Editing", regexp.MustCompile(`(?i)photo|background|remove|color|edit|retouch`)},
	{"Vector/Technical", regexp.MustCompile(`(?i)vector|mask|clipping|rasterize|bezier|pen tool|illustrator`)},
	{"Confidence/Experience", regexp.MustCompile(`(?i)confident|beginner|expert|feel|experience|use it|long time`)},
	{"Tools/Software", regexp.MustCompile(`(?i)tool|affinity|photoshop|version|update|install`)},
}

// AnalyzeCommentThemes counts keyword occurrences per theme across the
// distinct non-empty comments. Counts are occurrences, not comments: a
// comment mentioning "training" twice counts twice. Output is sorted by
// mentions descending.
func AnalyzeCommentThemes(comments []string) []ThemeCount {
	seen := make(map[string]bool)
	var distinct []string
	for _, c := range comments {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		distinct = append(distinct, c)
	}
	all := strings.Join(distinct, " ")

	counts := make([]ThemeCount, 0, len(commentThemes))
	for _, theme := range commentThemes {
		counts = append(counts, ThemeCount{
			Theme:    theme.label,
			Mentions: len(theme.pattern.FindAllStringIndex(all, -1)),
		})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Mentions > counts[j].Mentions })
	return counts
}
