package config

import "os"

// Automation levels accepted by pdca.automationLevel and BKIT_PDCA_AUTOMATION.
const (
	AutomationManual   = "manual"
	AutomationSemiAuto = "semi-auto"
	AutomationFullAuto = "full-auto"
)

// ValidAutomationLevel reports whether s names a known automation level.
func ValidAutomationLevel(s string) bool {
	switch s {
	case AutomationManual, AutomationSemiAuto, AutomationFullAuto:
		return true
	}
	return false
}

// PDCA holds the pdca.* settings.
type PDCA struct {
	MatchRateThreshold int      `json:"matchRateThreshold"`
	MaxIterations      int      `json:"maxIterations"`
	AutoIterate        bool     `json:"autoIterate"`
	RequireDesignDoc   bool     `json:"requireDesignDoc"`
	AutomationLevel    string   `json:"automationLevel"`
	ReviewCheckpoints  []string `json:"reviewCheckpoints"`
	AutoStartThreshold int      `json:"autoStartThreshold"`
}

// Triggers holds the triggers.* settings.
type Triggers struct {
	ImplicitEnabled     bool    `json:"implicitEnabled"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	ClarifyAmbiguity    bool    `json:"clarifyAmbiguity"`
}

// Pipeline holds the pipeline.* settings.
type Pipeline struct {
	AutoTransition   bool `json:"autoTransition"`
	SkipConfirmation bool `json:"skipConfirmation"`
}

// MultiFeature holds the multiFeature.* settings.
type MultiFeature struct {
	MaxActiveFeatures int  `json:"maxActiveFeatures"`
	AutoSwitch        bool `json:"autoSwitch"`
}

// CacheSettings holds the cache.* settings. TTL is in milliseconds.
type CacheSettings struct {
	Enabled bool `json:"enabled"`
	TTL     int  `json:"ttl"`
}

// Bkit is the typed view of the configuration with defaults applied.
type Bkit struct {
	PDCA         PDCA          `json:"pdca"`
	Triggers     Triggers      `json:"triggers"`
	Pipeline     Pipeline      `json:"pipeline"`
	MultiFeature MultiFeature  `json:"multiFeature"`
	Cache        CacheSettings `json:"cache"`

	Level            string   `json:"level,omitempty"`
	FeaturePatterns  []string `json:"featurePatterns"`
	SourceExtensions []string `json:"sourceExtensions,omitempty"`
	ExcludePatterns  []string `json:"excludePatterns"`
	StartupImports   []string `json:"startupImports,omitempty"`
}

// DefaultFeaturePatterns are the directory names that introduce a feature
// segment in a file path, e.g. src/features/<name>/...
var DefaultFeaturePatterns = []string{"features", "modules", "packages", "domains"}

// DefaultExcludePatterns are path fragments never treated as source.
var DefaultExcludePatterns = []string{
	"node_modules", ".git", "dist", "build", ".next", "__pycache__",
	"vendor", "target", ".cache", ".turbo", "coverage",
}

// getenv is a package-level variable for testability.
var getenv = os.Getenv

// Typed resolves the Bkit settings from c. BKIT_PDCA_AUTOMATION overrides
// pdca.automationLevel when it names a valid level.
func (c *Config) Typed() Bkit {
	automation := c.String("pdca.automationLevel", AutomationSemiAuto)
	if env := getenv("BKIT_PDCA_AUTOMATION"); ValidAutomationLevel(env) {
		automation = env
	}
	if !ValidAutomationLevel(automation) {
		automation = AutomationSemiAuto
	}

	return Bkit{
		PDCA: PDCA{
			MatchRateThreshold: c.Int("pdca.matchRateThreshold", 90),
			MaxIterations:      c.Int("pdca.maxIterations", 5),
			AutoIterate:        c.Bool("pdca.autoIterate", true),
			RequireDesignDoc:   c.Bool("pdca.requireDesignDoc", true),
			AutomationLevel:    automation,
			ReviewCheckpoints:  c.Strings("pdca.fullAuto.reviewCheckpoints", []string{"design"}),
			AutoStartThreshold: c.Int("pdca.autoStartThreshold", 100),
		},
		Triggers: Triggers{
			ImplicitEnabled:     c.Bool("triggers.implicitEnabled", true),
			ConfidenceThreshold: c.Float("triggers.confidenceThreshold", 0.7),
			ClarifyAmbiguity:    c.Bool("triggers.clarifyAmbiguity", true),
		},
		Pipeline: Pipeline{
			AutoTransition:   c.Bool("pipeline.autoTransition", false),
			SkipConfirmation: c.Bool("pipeline.skipConfirmation", false),
		},
		MultiFeature: MultiFeature{
			MaxActiveFeatures: c.Int("multiFeature.maxActiveFeatures", 5),
			AutoSwitch:        c.Bool("multiFeature.autoSwitch", true),
		},
		Cache: CacheSettings{
			Enabled: c.Bool("cache.enabled", true),
			TTL:     c.Int("cache.ttl", 5000),
		},
		Level:            c.String("level", ""),
		FeaturePatterns:  c.Strings("featurePatterns", DefaultFeaturePatterns),
		SourceExtensions: c.Strings("fileDetection.sourceExtensions", nil),
		ExcludePatterns:  c.Strings("fileDetection.excludePatterns", DefaultExcludePatterns),
		StartupImports:   c.Strings("startupImports", nil),
	}
}
