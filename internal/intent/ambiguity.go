package intent

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// Factor names one contributor to the ambiguity score.
type Factor string

const (
	FactorNoFilePath       Factor = "no_file_path"
	FactorNoTechnicalTerms Factor = "no_technical_terms"
	FactorNoSpecificNouns  Factor = "no_specific_nouns"
	FactorNoScope          Factor = "no_scope"
	FactorMultiple         Factor = "multiple_interpretations"
	FactorContextConflict  Factor = "context_conflict"
	FactorShortRequest     Factor = "short_request"
)

// ClarifyThreshold is the score at which a request needs clarification.
const ClarifyThreshold = 0.5

const shortRequestLen = 30

var (
	filePathRes = []*regexp.Regexp{
		regexp.MustCompile(`/[\w.-]+/[\w.-]+`),
		regexp.MustCompile(`[A-Z]:\\[\w.-]+\\[\w.-]+`),
		regexp.MustCompile(`\./[\w.-]+`),
		regexp.MustCompile(`(?i)\.(js|ts|py|go|rs|java|tsx|jsx|vue|svelte|md|json|yaml|yml)$`),
	}

	technicalTerms = []string{
		"api", "database", "server", "client", "component", "module",
		"function", "class", "interface", "type", "schema", "endpoint",
		"authentication", "authorization", "middleware", "controller",
		"service", "repository", "model", "view", "hook", "context",
	}

	specificNounRes = []*regexp.Regexp{
		regexp.MustCompile(`"[^"]+"`),
		regexp.MustCompile(`'[^']+'`),
		regexp.MustCompile(`[A-Z][a-z]+[A-Z][a-z]+`),
		regexp.MustCompile(`[a-z]+[A-Z][a-z]+`),
	}

	scopeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)only|just|specifically|exactly`),
		regexp.MustCompile(`(?i)all|every|entire|whole`),
		regexp.MustCompile(`(?i)from\s+\w+\s+to\s+\w+`),
		regexp.MustCompile(`(?i)in\s+the\s+\w+\s+(?:file|folder|directory|module)`),
	}

	vagueRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)maybe|perhaps|or|either`),
		regexp.MustCompile(`(?i)it|this|that|those|these`),
		regexp.MustCompile(`(?i)stuff|things|something`),
		regexp.MustCompile(`(?i)fix|update|change|modify`),
	}
	pronounRe = regexp.MustCompile(`(?i)\b(it|this|that)\b`)

	// phaseConflicts lists words that point away from the current phase.
	phaseConflicts = map[pdca.Phase][]string{
		pdca.PhasePlan:   {"implement", "code", "build", "deploy"},
		pdca.PhaseDesign: {"deploy", "test", "release"},
		pdca.PhaseDo:     {"plan", "design", "architecture"},
	}
)

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsFilePath reports whether text mentions a path or a source file.
func ContainsFilePath(text string) bool {
	return text != "" && anyMatch(filePathRes, text)
}

// ContainsTechnicalTerms reports whether text uses a programming term.
func ContainsTechnicalTerms(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// HasSpecificNouns reports quoted names or camel-case identifiers.
func HasSpecificNouns(text string) bool {
	return text != "" && anyMatch(specificNounRes, text)
}

// HasScopeDefinition reports words that bound the change.
func HasScopeDefinition(text string) bool {
	return text != "" && anyMatch(scopeRes, text)
}

// HasMultipleInterpretations reports vague words or repeated pronouns.
func HasMultipleInterpretations(text string) bool {
	if text == "" {
		return false
	}
	return len(pronounRe.FindAllString(text, -1)) >= 2 || anyMatch(vagueRes, text)
}

// ContextConflicts lists the words in request that contradict phase.
func ContextConflicts(request string, phase pdca.Phase) []string {
	if phase == "" || request == "" {
		return nil
	}
	lower := strings.ToLower(request)
	var out []string
	for _, kw := range phaseConflicts[phase] {
		if strings.Contains(lower, kw) {
			out = append(out, fmt.Sprintf("Request mentions %q but current phase is %q", kw, phase))
		}
	}
	return out
}

// Context is what AmbiguityScore knows beyond the request text.
type Context struct {
	CurrentPhase pdca.Phase
}

// Ambiguity is a clamped score and the factors that produced it.
type Ambiguity struct {
	Score     float64  `json:"score"`
	Factors   []Factor `json:"factors"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// NeedsClarification reports whether the score reaches ClarifyThreshold.
func (a Ambiguity) NeedsClarification() bool { return a.Score >= ClarifyThreshold }

// Has reports whether f contributed.
func (a Ambiguity) Has(f Factor) bool {
	for _, x := range a.Factors {
		if x == f {
			return true
		}
	}
	return false
}

// AmbiguityScore sums fixed weights for each factor present in request
// and clamps the total to [0,1].
func AmbiguityScore(request string, ctx Context) Ambiguity {
	a := Ambiguity{Factors: []Factor{}}
	add := func(f Factor, w float64) {
		a.Factors = append(a.Factors, f)
		a.Score += w
	}

	if !ContainsFilePath(request) {
		add(FactorNoFilePath, 0.15)
	}
	if !ContainsTechnicalTerms(request) {
		add(FactorNoTechnicalTerms, 0.10)
	}
	if !HasSpecificNouns(request) {
		add(FactorNoSpecificNouns, 0.15)
	}
	if !HasScopeDefinition(request) {
		add(FactorNoScope, 0.10)
	}
	if HasMultipleInterpretations(request) {
		add(FactorMultiple, 0.20)
	}
	if c := ContextConflicts(request, ctx.CurrentPhase); len(c) > 0 {
		a.Conflicts = c
		add(FactorContextConflict, 0.15*float64(len(c)))
	}
	if len([]rune(request)) < shortRequestLen {
		add(FactorShortRequest, 0.15)
	}

	a.Score = math.Round(math.Min(1, math.Max(0, a.Score))*100) / 100
	return a
}

// ClarifyingQuestions builds AskUserQuestion entries for the factors that
// a user can resolve.
func ClarifyingQuestions(a Ambiguity) []automation.Question {
	var qs []automation.Question
	if a.Has(FactorNoFilePath) {
		qs = append(qs, automation.Question{
			Question: "Which file or directory should I focus on?",
			Header:   "Location",
			Options: []automation.Option{
				{Label: "Current file", Description: "The file we're currently working on"},
				{Label: "Entire project", Description: "Search the whole codebase"},
				{Label: "Specific path", Description: "I'll provide the path"},
			},
		})
	}
	if a.Has(FactorNoScope) {
		qs = append(qs, automation.Question{
			Question: "What is the scope of this change?",
			Header:   "Scope",
			Options: []automation.Option{
				{Label: "Single file", Description: "Change only one file"},
				{Label: "Multiple files", Description: "May affect several files"},
				{Label: "Full feature", Description: "Complete feature implementation"},
			},
		})
	}
	if a.Has(FactorMultiple) {
		qs = append(qs, automation.Question{
			Question: "Could you be more specific about what you need?",
			Header:   "Clarification",
			Options: []automation.Option{
				{Label: "Add new code", Description: "Create new functionality"},
				{Label: "Modify existing", Description: "Change current implementation"},
				{Label: "Fix a bug", Description: "Resolve an issue"},
				{Label: "Refactor", Description: "Improve without changing behavior"},
			},
		})
	}
	return qs
}
