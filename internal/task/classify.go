// Package task sizes changes, creates PDCA task records and tracks them in
// the status document.
package task

import (
	"fmt"
	"strings"
)

// Classification is the size bucket of a change.
type Classification string

const (
	Trivial Classification = "trivial"
	Minor   Classification = "minor"
	Feature Classification = "feature"
	Major   Classification = "major"
)

// Level is how much PDCA process a classification calls for.
type Level string

const (
	LevelNone     Level = "none"
	LevelLight    Level = "light"
	LevelStandard Level = "standard"
	LevelFull     Level = "full"
)

// Thresholds are inclusive upper bounds per bucket; Major is unbounded.
var (
	charLimits = [...]int{200, 1000, 5000}
	lineLimits = [...]int{10, 50, 200}
)

func bucket(n int, limits [3]int) Classification {
	switch {
	case n <= limits[0]:
		return Trivial
	case n <= limits[1]:
		return Minor
	case n <= limits[2]:
		return Feature
	}
	return Major
}

// Classify buckets content by character count.
func Classify(content string) Classification {
	if content == "" {
		return Trivial
	}
	return bucket(len([]rune(content)), charLimits)
}

// LineCount counts newline-separated lines; "" has zero lines.
func LineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ClassifyByLines buckets content by line count.
func ClassifyByLines(content string) Classification {
	if content == "" {
		return Trivial
	}
	return bucket(LineCount(content), lineLimits)
}

// PdcaLevel maps a classification to its process level.
func PdcaLevel(c Classification) Level {
	switch c {
	case Trivial:
		return LevelNone
	case Feature:
		return LevelStandard
	case Major:
		return LevelFull
	}
	return LevelLight
}

// Guidance is a one-line recommendation for c.
func Guidance(c Classification) string {
	switch c {
	case Trivial:
		return "Trivial change. No PDCA needed."
	case Minor:
		return "Minor change. Consider brief documentation."
	case Feature:
		return "Feature-level change. Design doc recommended."
	case Major:
		return "Major change. Full PDCA cycle strongly recommended."
	}
	return ""
}

// GuidanceByLevel is the recommendation for a change of lines lines to
// feature.
func GuidanceByLevel(level Level, feature string, lines int) string {
	switch level {
	case LevelNone:
		return fmt.Sprintf("Minor change (%d lines). PDCA optional.", lines)
	case LevelLight:
		return fmt.Sprintf("Moderate change (%d lines). Design doc recommended for '%s'.", lines, feature)
	case LevelStandard:
		return fmt.Sprintf("Feature (%d lines). Design doc recommended for '%s'. Consider /pdca-design %s", lines, feature, feature)
	case LevelFull:
		return fmt.Sprintf("Major feature (%d lines) without design doc. Strongly recommend /pdca-design %s first.", lines, feature)
	}
	return ""
}
