package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// --- Table ---

func TestTable_EveryLanguageCoversEveryIntent(t *testing.T) {
	all := append(append([]Intent{}, Agents...), Skills...)
	all = append(all, NewFeature)
	for _, lang := range Languages {
		for _, in := range all {
			assert.NotEmpty(t, Table[lang][in], "%s/%s has no phrases", lang, in)
		}
	}
}

func TestPhrases_Deduplicated(t *testing.T) {
	p := Phrases(SkillEnterprise)
	seen := map[string]bool{}
	for _, s := range p {
		require.False(t, seen[s], "duplicate phrase %q", s)
		seen[s] = true
	}
	assert.Contains(t, p, "kubernetes")
	assert.Equal(t, Table[English][GapDetector], Keywords("xx", GapDetector))
}

// --- Language ---

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want Language
	}{
		{"", English},
		{"add a login page", English},
		{"로그인 기능 만들어줘", Korean},
		{"ログイン機能を作って", Japanese},
		{"添加登录功能", Chinese},
		{"漢字とかな", Japanese},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.text), tt.text)
	}
}

// --- Triggers ---

func TestMatchAgent(t *testing.T) {
	m := MatchAgent("can you verify the implementation", 0.7)
	require.NotNil(t, m)
	assert.Equal(t, "bkit:gap-detector", m.Agent)
	assert.Equal(t, 0.8, m.Confidence)

	m = MatchAgent("개선해줘", 0.7)
	require.NotNil(t, m)
	assert.Equal(t, "bkit:pdca-iterator", m.Agent)

	assert.Nil(t, MatchAgent("", 0.7))
	assert.Nil(t, MatchAgent("xyz", 0.7))
	assert.Nil(t, MatchAgent("can you verify the implementation", 0.9), "threshold above match confidence")
}

func TestMatchSkill(t *testing.T) {
	m := MatchSkill("set up a Kubernetes cluster", 0.7)
	require.NotNil(t, m)
	assert.Equal(t, "bkit:enterprise", m.Skill)
	assert.Equal(t, pdca.LevelEnterprise, m.Level)

	m = MatchSkill("a flutter app", 0.7)
	require.NotNil(t, m)
	assert.Equal(t, "bkit:mobile-app", m.Skill)
	assert.Equal(t, pdca.LevelDynamic, m.Level)

	assert.Nil(t, MatchSkill("xyz", 0.7))
	assert.Nil(t, MatchSkill("set up a Kubernetes cluster", 0.85))
}

func TestDetectNewFeature(t *testing.T) {
	got := DetectNewFeature(`implement a new feature called user-auth`)
	assert.True(t, got.IsNewFeature)
	assert.Equal(t, "user-auth", got.FeatureName)
	assert.Equal(t, 0.9, got.Confidence)

	got = DetectNewFeature("build something nice")
	assert.True(t, got.IsNewFeature)
	assert.Empty(t, got.FeatureName)
	assert.Equal(t, 0.7, got.Confidence)

	assert.False(t, DetectNewFeature("what time is it").IsNewFeature)
}

func TestExtractFeatureName(t *testing.T) {
	tests := map[string]string{
		"start feature login":        "login",
		"a module named payments":    "payments",
		`work on "cart"`:             "cart",
		"please implement checkout":  "checkout",
		"build dashboard now":        "dashboard",
		"nothing to see":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractFeatureName(in), in)
	}
}

// --- Ambiguity ---

func TestAmbiguityScore_VagueRequest(t *testing.T) {
	a := AmbiguityScore("fix it", Context{})
	assert.GreaterOrEqual(t, a.Score, 0.5)
	assert.True(t, a.NeedsClarification())
	for _, f := range []Factor{FactorNoFilePath, FactorNoTechnicalTerms, FactorNoSpecificNouns, FactorMultiple, FactorShortRequest} {
		assert.True(t, a.Has(f), "missing factor %s", f)
	}
}

func TestAmbiguityScore_SpecificRequest(t *testing.T) {
	a := AmbiguityScore(`Add a validateEmail function only in the src/auth/validate.ts file`, Context{})
	assert.False(t, a.Has(FactorNoFilePath))
	assert.False(t, a.Has(FactorNoTechnicalTerms))
	assert.False(t, a.Has(FactorNoSpecificNouns))
	assert.False(t, a.Has(FactorNoScope))
	assert.False(t, a.Has(FactorShortRequest))
	assert.Less(t, a.Score, 0.5)
}

func TestAmbiguityScore_ContextConflict(t *testing.T) {
	a := AmbiguityScore("let's deploy and build", Context{CurrentPhase: pdca.PhasePlan})
	assert.True(t, a.Has(FactorContextConflict))
	assert.Len(t, a.Conflicts, 2)
	assert.LessOrEqual(t, a.Score, 1.0)
}

func TestClarifyingQuestions(t *testing.T) {
	qs := ClarifyingQuestions(AmbiguityScore("fix it", Context{}))
	require.Len(t, qs, 3)
	assert.Equal(t, "Location", qs[0].Header)
	assert.Equal(t, "Scope", qs[1].Header)
	assert.Equal(t, "Clarification", qs[2].Header)
	assert.Len(t, qs[2].Options, 4)
}
