package pdca

import (
	"path/filepath"
	"strings"

	"github.com/bkit-dev/bkit/internal/config"
)

// FileRules carries the configurable parts of source-file detection.
type FileRules struct {
	ExtraExtensions []string
	ExcludePatterns []string
}

// RulesFrom builds FileRules from typed configuration.
func RulesFrom(b config.Bkit) FileRules {
	return FileRules{ExtraExtensions: b.SourceExtensions, ExcludePatterns: b.ExcludePatterns}
}

// DefaultFileRules uses the built-in exclusion list and no extra extensions.
func DefaultFileRules() FileRules {
	return FileRules{ExcludePatterns: config.DefaultExcludePatterns}
}

// IsSourceFile reports whether path is tracked source: a tiered (or
// configured) extension outside every exclude pattern.
func IsSourceFile(path string, rules FileRules) bool {
	for _, pattern := range rules.ExcludePatterns {
		if strings.Contains(path, pattern) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return LanguageTier(path) != TierUnknown || contains(rules.ExtraExtensions, ext)
}

var codeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".rs", ".java"}

// IsCodeFile reports whether path is in a mainstream application language.
func IsCodeFile(path string) bool {
	return contains(codeExtensions, strings.ToLower(filepath.Ext(path)))
}

var uiExtensions = []string{".tsx", ".jsx", ".vue", ".svelte", ".astro"}

// IsUIFile reports whether path is a UI component.
func IsUIFile(path string) bool {
	return contains(uiExtensions, strings.ToLower(filepath.Ext(path))) ||
		strings.Contains(filepath.ToSlash(path), "/components/")
}

// IsEnvFile reports whether path is a dotenv file (.env, .env.local, prod.env).
func IsEnvFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".env") || strings.HasSuffix(base, ".env")
}
