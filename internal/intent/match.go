package intent

import (
	"regexp"
	"strings"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// TriggerConfidence is reported for every keyword match.
const TriggerConfidence = 0.8

// DetectLanguage guesses the language of text from its script. Latin text
// is reported as English.
func DetectLanguage(text string) Language {
	var kana, han bool
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7AF:
			return Korean
		case r >= 0x3040 && r <= 0x30FF:
			kana = true
		case r >= 0x4E00 && r <= 0x9FFF:
			han = true
		}
	}
	switch {
	case kana:
		return Japanese
	case han:
		return Chinese
	}
	return English
}

// Matches reports whether text contains any phrase of intent in any
// language.
func Matches(text string, intent Intent) bool {
	lower := strings.ToLower(text)
	for _, lang := range Languages {
		for _, p := range Table[lang][intent] {
			if strings.Contains(lower, strings.ToLower(p)) {
				return true
			}
		}
	}
	return false
}

// AgentMatch is an implicit agent trigger.
type AgentMatch struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
}

// MatchAgent returns the first agent whose phrases occur in text, or nil
// when the match confidence is below threshold.
func MatchAgent(text string, threshold float64) *AgentMatch {
	if text == "" || TriggerConfidence < threshold {
		return nil
	}
	for _, a := range Agents {
		if Matches(text, a) {
			return &AgentMatch{Agent: "bkit:" + string(a), Confidence: TriggerConfidence}
		}
	}
	return nil
}

// SkillMatch is an implicit skill trigger.
type SkillMatch struct {
	Skill      string     `json:"skill"`
	Level      pdca.Level `json:"level"`
	Confidence float64    `json:"confidence"`
}

var skillLevels = map[Intent]pdca.Level{
	SkillStarter:    pdca.LevelStarter,
	SkillDynamic:    pdca.LevelDynamic,
	SkillEnterprise: pdca.LevelEnterprise,
	SkillMobileApp:  pdca.LevelDynamic,
}

// MatchSkill returns the first level skill whose phrases occur in text,
// subject to the same threshold as MatchAgent.
func MatchSkill(text string, threshold float64) *SkillMatch {
	if text == "" || TriggerConfidence < threshold {
		return nil
	}
	for _, s := range Skills {
		if Matches(text, s) {
			level, ok := skillLevels[s]
			if !ok {
				level = pdca.LevelDynamic
			}
			return &SkillMatch{Skill: "bkit:" + string(s), Level: level, Confidence: TriggerConfidence}
		}
	}
	return nil
}

// FeatureIntent is the result of DetectNewFeature.
type FeatureIntent struct {
	IsNewFeature bool    `json:"isNewFeature"`
	FeatureName  string  `json:"featureName,omitempty"`
	Confidence   float64 `json:"confidence"`
}

var (
	namedRe  = regexp.MustCompile(`(?i)(?:called|named|이름이?)\s+["']?(\w[\w-]*)["']?`)
	quotedRe = regexp.MustCompile(`["'](\w[\w-]*)["']`)

	// featureNameRes are tried in order by ExtractFeatureName.
	featureNameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)feature\s+["']?(\w[\w-]*)["']?`),
		regexp.MustCompile(`(?i)(?:called|named)\s+["']?(\w[\w-]*)["']?`),
		quotedRe,
		regexp.MustCompile(`(?i)implement\s+(\w[\w-]*)`),
		regexp.MustCompile(`(?i)build\s+(\w[\w-]*)`),
	}
)

// DetectNewFeature reports whether text asks for a new feature. A name
// given as "called X", "named X" or in quotes raises the confidence to 0.9.
func DetectNewFeature(text string) FeatureIntent {
	if text == "" || !Matches(text, NewFeature) {
		return FeatureIntent{}
	}
	var name string
	if m := namedRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	} else if m := quotedRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	}
	conf := 0.7
	if name != "" {
		conf = 0.9
	}
	return FeatureIntent{IsNewFeature: true, FeatureName: name, Confidence: conf}
}

// ExtractFeatureName pulls a feature name out of a request, or "".
func ExtractFeatureName(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range featureNameRes {
		if m := re.FindStringSubmatch(text); m != nil && m[1] != "" {
			return m[1]
		}
	}
	return ""
}
