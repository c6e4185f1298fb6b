package scorer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/agentguard/core"
)

// Scorer evaluates text or ordered reasoning steps for logical consistency.
//
// Implementations must be deterministic for identical input and side-effect
// free. Scoring never fails: malformed input (empty content, zero steps)
// yields a CRITICAL result carrying an explanatory contradiction entry, since
// callers treat results rather than errors as the primary signal.
type Scorer interface {
	Score(content string) core.CoherenceResult
	ScoreChain(steps []string) core.CoherenceResult
}

// LevelForScore maps a normalized score to its coherence level bucket.
func LevelForScore(score float64) core.CoherenceLevel {
	switch {
	case score >= 0.7:
		return core.LevelHigh
	case score >= 0.5:
		return core.LevelMedium
	case score >= 0.3:
		return core.LevelLow
	default:
		return core.LevelCritical
	}
}

// contradictionPatterns flag statements that assert and deny at once.
var contradictionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(not|never|no)\s+.*\s+(always|must|will)`),
	regexp.MustCompile(`(?i)(impossible|cannot)\s+.*\s+(will|must|always)`),
	regexp.MustCompile(`(?i)(all|every|always)\s+.*\s+(none|never|no)`),
	regexp.MustCompile(`(?i)(true|fact|certain)\s+.*\s+(false|wrong|incorrect)`),
}

// oppositePairs are word pairs that directly contradict when co-occurring.
var oppositePairs = [][2]string{
	{"always", "never"}, {"all", "none"}, {"true", "false"},
	{"possible", "impossible"}, {"can", "cannot"}, {"will", "won't"},
}

// HeuristicScorer is the default pattern-based Scorer. It detects
// contradictions via regular expressions, direct-opposite word pairs and
// cross-step negation checks, then composes a score from penalty and bonus
// terms. It holds no mutable state and is safe for concurrent use.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the default pattern-based scorer.
func NewHeuristicScorer() *HeuristicScorer { return &HeuristicScorer{} }

// Score validates a single statement for internal coherence.
func (s *HeuristicScorer) Score(content string) core.CoherenceResult {
	if strings.TrimSpace(content) == "" {
		return core.CoherenceResult{
			Score:          0.0,
			Level:          core.LevelCritical,
			Contradictions: []string{"empty content cannot be validated"},
			Confidence:     1.0,
		}
	}

	contradictions := detectContradictions(content)

	score := 1.0
	if len(contradictions) > 0 {
		score = 1.0 - float64(len(contradictions))*0.3
		if score < 0.0 {
			score = 0.0
		}
	}

	confidence := 0.6
	if len(strings.Fields(content)) > 5 {
		confidence = 0.9
	}

	return core.CoherenceResult{
		Score:          score,
		Level:          LevelForScore(score),
		Contradictions: contradictions,
		Confidence:     confidence,
	}
}

// ScoreChain validates an ordered reasoning chain, checking each step
// internally and every step against all preceding steps.
func (s *HeuristicScorer) ScoreChain(steps []string) core.CoherenceResult {
	if len(steps) == 0 {
		return core.CoherenceResult{
			Score:          0.0,
			Level:          core.LevelCritical,
			Contradictions: []string{"reasoning chain has no steps"},
			Confidence:     1.0,
		}
	}

	var contradictions []string
	crossCount := 0

	for i, step := range steps {
		for _, c := range detectContradictions(step) {
			contradictions = append(contradictions, fmt.Sprintf("step %d: %s", i+1, c))
		}
		for j, prev := range steps[:i] {
			for _, c := range detectCrossContradictions(prev, step) {
				contradictions = append(contradictions, fmt.Sprintf("steps %d-%d: %s", j+1, i+1, c))
				crossCount++
			}
		}
	}

	score := chainScore(steps, len(contradictions), crossCount)

	return core.CoherenceResult{
		Score:          score,
		Level:          LevelForScore(score),
		Contradictions: contradictions,
		Confidence:     chainConfidence(len(steps), len(contradictions)),
	}
}

// detectContradictions finds logical contradictions within a single text.
func detectContradictions(text string) []string {
	var contradictions []string

	for _, pattern := range contradictionPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			contradictions = append(contradictions, fmt.Sprintf("contradiction pattern: %s", match))
		}
	}

	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[w] = true
	}
	for _, pair := range oppositePairs {
		if words[pair[0]] && words[pair[1]] {
			contradictions = append(contradictions, fmt.Sprintf("direct contradiction: %q and %q in same statement", pair[0], pair[1]))
		}
	}

	return contradictions
}

// detectCrossContradictions finds contradictions between two statements.
func detectCrossContradictions(a, b string) []string {
	var contradictions []string

	aLower, bLower := strings.ToLower(a), strings.ToLower(b)
	aWords := fieldSet(aLower)
	bWords := fieldSet(bLower)

	// Plain negation of shared vocabulary.
	if aWords["not"] && !bWords["not"] {
		for w := range aWords {
			if w != "not" && bWords[w] {
				contradictions = append(contradictions, "negation contradiction between statements")
				break
			}
		}
	}

	// Universal claim followed by an existence claim of the exception.
	if (strings.Contains(aLower, "all") || strings.Contains(aLower, "every")) &&
		(strings.Contains(bLower, "contain") || strings.Contains(bLower, "have")) {
		if containsAny(aLower, "perfect", "logical", "consistent") && containsAny(bLower, "contradiction", "error", "inconsistent") {
			contradictions = append(contradictions, "universal claim contradicted by existence claim")
		}
	}

	// Existence denial followed by a usage claim.
	if (strings.Contains(aLower, "no") && strings.Contains(aLower, "exist")) || strings.Contains(aLower, "none") {
		if containsAny(bLower, "using", "have", "current", "this") {
			contradictions = append(contradictions, "existence denial contradicted by usage claim")
		}
	}

	// Impossible premise followed by a definitive conclusion.
	if strings.Contains(aLower, "impossible") || strings.Contains(aLower, "cannot") {
		if strings.Contains(bLower, "therefore") || strings.Contains(bLower, "thus") {
			contradictions = append(contradictions, "impossible premise leads to definitive conclusion")
		}
	}

	return contradictions
}

// chainScore composes the final score from penalty and bonus terms.
// Contradictions are heavy flaws; cross-step ones weigh extra. Longer chains
// earn a small bonus, overly terse steps a penalty.
func chainScore(steps []string, contradictions, crossContradictions int) float64 {
	base := 1.0

	penalty := float64(contradictions)*0.4 + float64(crossContradictions)*0.3

	bonus := float64(len(steps)) * 0.05
	if bonus > 0.2 {
		bonus = 0.2
	}

	totalWords := 0
	for _, step := range steps {
		totalWords += len(strings.Fields(step))
	}
	if float64(totalWords)/float64(len(steps)) < 5 {
		base -= 0.3
	}

	score := base - penalty + bonus
	if score < 0.0 {
		score = 0.0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// chainConfidence estimates assessment reliability: more text raises it, many
// contradictions lower it (context may be missing).
func chainConfidence(steps, contradictions int) float64 {
	confidence := 0.8

	bonus := float64(steps) * 0.05
	if bonus > 0.2 {
		bonus = 0.2
	}
	confidence += bonus - float64(contradictions)*0.1

	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func fieldSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
