package pdca

import (
	"path/filepath"
	"strings"
)

// Language tiers, from best to least supported.
const (
	Tier1            = "1"
	Tier2            = "2"
	Tier3            = "3"
	Tier4            = "4"
	TierExperimental = "experimental"
	TierUnknown      = "unknown"
)

// TierExtensions maps each tier to its file extensions.
var TierExtensions = map[string][]string{
	Tier1:            {".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".rs", ".java", ".kt"},
	Tier2:            {".vue", ".svelte", ".astro", ".php", ".rb", ".swift", ".scala"},
	Tier3:            {".c", ".cpp", ".h", ".hpp", ".cs", ".m", ".mm"},
	Tier4:            {".sh", ".bash", ".zsh", ".ps1", ".bat", ".cmd"},
	TierExperimental: {".zig", ".nim", ".v", ".odin", ".jai"},
}

var tierOrder = []string{Tier1, Tier2, Tier3, Tier4, TierExperimental}

// LanguageTier returns the tier of path's extension, or TierUnknown.
func LanguageTier(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, tier := range tierOrder {
		if contains(TierExtensions[tier], ext) {
			return tier
		}
	}
	return TierUnknown
}

var tierDescriptions = map[string]string{
	Tier1:            "AI-Native Essential",
	Tier2:            "Mainstream Recommended",
	Tier3:            "Domain Specific",
	Tier4:            "Legacy/Niche",
	TierExperimental: "Experimental",
}

// TierDescription returns a short label for tier.
func TierDescription(tier string) string {
	if d, ok := tierDescriptions[tier]; ok {
		return d
	}
	return "Unknown"
}

var tierGuidance = map[string]string{
	Tier1:            "Tier 1 (AI-Native): Full PDCA support. Vibe coding optimized.",
	Tier2:            "Tier 2 (Mainstream): Good PDCA support. Most features available.",
	Tier3:            "Tier 3 (Domain): Basic PDCA support. Some limitations may apply.",
	Tier4:            "Tier 4 (Legacy): Limited PDCA support. Consider migration.",
	TierExperimental: "Experimental: PDCA support varies. Use with caution.",
}

// TierGuidance returns the PDCA support note for tier, or "".
func TierGuidance(tier string) string {
	return tierGuidance[tier]
}
