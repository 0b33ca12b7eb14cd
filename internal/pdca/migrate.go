package pdca

import "sort"

// NeedsMigration reports whether raw predates the v2.0 schema.
func NeedsMigration(raw map[string]any) bool {
	v, _ := raw["version"].(string)
	return v == "" || v == "1.0"
}

// Migrate upgrades a v1.0 document to v2.0. A v2 document is returned
// unchanged, so Migrate is idempotent.
//
// v1.0 kept a single currentFeature and currentPhase; both map onto the
// v2 primary feature and pipeline position. Features that are not
// completed become active; a currentFeature with no entry starts at plan.
func Migrate(raw map[string]any) map[string]any {
	if !NeedsMigration(raw) {
		return raw
	}
	now := Now()

	features := map[string]any{}
	if old, ok := raw["features"].(map[string]any); ok {
		features = old
	}
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	active := []any{}
	for _, name := range names {
		feat, ok := features[name].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := feat["requirements"]; !ok {
			feat["requirements"] = []any{}
		}
		if _, ok := feat["documents"]; !ok {
			feat["documents"] = map[string]any{}
		}
		if _, ok := feat["timestamps"]; !ok {
			feat["timestamps"] = map[string]any{
				"started":     stringOr(feat["startedAt"], now),
				"lastUpdated": stringOr(feat["updatedAt"], now),
			}
		}
		phase, _ := feat["phase"].(string)
		if n := PhaseNumber(Phase(phase)); n > 0 {
			feat["phaseNumber"] = n
		}
		if phase != string(PhaseCompleted) {
			active = append(active, name)
		}
	}

	primary := any(nil)
	if cur, ok := raw["currentFeature"].(string); ok && cur != "" {
		primary = cur
		found := false
		for _, a := range active {
			if a == cur {
				found = true
				break
			}
		}
		if _, tracked := features[cur]; !tracked {
			features[cur] = map[string]any{
				"phase":        string(PhasePlan),
				"phaseNumber":  PhaseNumber(PhasePlan),
				"requirements": []any{},
				"documents":    map[string]any{},
				"timestamps":   map[string]any{"started": now, "lastUpdated": now},
			}
		}
		if !found {
			active = append(active, cur)
		}
	}

	currentPhase := any(1)
	if cp, ok := raw["currentPhase"]; ok && cp != nil && cp != float64(0) {
		currentPhase = cp
	}

	history := []any{}
	if h, ok := raw["history"].([]any); ok {
		history = h
	}

	return map[string]any{
		"version":        StatusVersion,
		"lastUpdated":    now,
		"activeFeatures": active,
		"primaryFeature": primary,
		"features":       features,
		"pipeline": map[string]any{
			"currentPhase": currentPhase,
			"level":        string(LevelDynamic),
			"phaseHistory": []any{},
		},
		"session": map[string]any{
			"startedAt":           now,
			"onboardingCompleted": false,
			"lastActivity":        now,
		},
		"history": history,
	}
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
