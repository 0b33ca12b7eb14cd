// Package cli holds the bkit cobra commands. cmd/bkit assembles them into
// the root command.
package cli

import (
	"fmt"
	"log"

	"github.com/fatih/color"

	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
)

// resolveEnv is a package-level variable for testability.
var resolveEnv = platform.Resolve

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	failMark = color.New(color.FgRed).Sprint("✗")
)

// project resolves the environment and opens the status store of the
// current project.
func project() (platform.Env, *config.Config, *pdca.Store) {
	env := resolveEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Printf("WARNING: config: %v (using defaults)", err)
	}
	store := pdca.NewStore(env.ProjectDir, pdca.WithFeaturePatterns(cfg.Typed().FeaturePatterns))
	return env, cfg, store
}

// featureArg returns args[0] or the primary feature.
func featureArg(store *pdca.Store, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if primary := store.Primary(); primary != "" {
		return primary, nil
	}
	return "", fmt.Errorf("no feature given and no primary feature set")
}
