package core

import "strings"

// CoherenceLevel is an ordinal severity bucket describing how logically
// consistent validated content is. Lower numeric values are worse; the
// ordering is relied upon by threshold comparisons (see halt.Controller).
type CoherenceLevel int

const (
	// LevelCritical marks content with severe logical breakdown.
	LevelCritical CoherenceLevel = iota
	// LevelLow marks content with significant consistency problems.
	LevelLow
	// LevelMedium marks content with minor consistency problems.
	LevelMedium
	// LevelHigh marks content with no detected consistency problems.
	LevelHigh
)

// String returns the string representation of the coherence level.
func (l CoherenceLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseCoherenceLevel converts a level name (as produced by String, any case)
// back to its CoherenceLevel. The zero flag reports an unknown name.
func ParseCoherenceLevel(s string) (CoherenceLevel, bool) {
	switch strings.ToUpper(s) {
	case "CRITICAL":
		return LevelCritical, true
	case "LOW":
		return LevelLow, true
	case "MEDIUM":
		return LevelMedium, true
	case "HIGH":
		return LevelHigh, true
	default:
		return LevelCritical, false
	}
}

// CoherenceResult is the outcome of scoring a piece of content or a reasoning
// chain. After construction it should be treated as immutable.
//
// Score is normalized to [0.0, 1.0]. Contradictions preserves detection order.
// Confidence expresses how reliable the assessment itself is and does not
// participate in threshold decisions.
type CoherenceResult struct {
	Score          float64        `json:"score"`
	Level          CoherenceLevel `json:"level"`
	Contradictions []string       `json:"contradictions,omitempty"`
	Confidence     float64        `json:"confidence"`
}

// HasContradictions reports whether any contradictions were detected.
func (r CoherenceResult) HasContradictions() bool { return len(r.Contradictions) > 0 }
