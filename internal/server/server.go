// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete stores and
// injects them into the tools, prompts and resources that use them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
	"github.com/bkit-dev/bkit/internal/memtools"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
	"github.com/bkit-dev/bkit/internal/prompts"
	"github.com/bkit-dev/bkit/internal/resources"
	"github.com/bkit-dev/bkit/internal/task"
	"github.com/bkit-dev/bkit/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server for the project in env with
// all tools, prompts and resources registered.
//
// The returned cleanup function closes the journal and the debug log and
// must be called on shutdown (typically via defer). It is always non-nil
// and safe to call even if the journal failed to open.
func New(env platform.Env) (*server.MCPServer, func(), error) {
	if env.ProjectDir == "" {
		return nil, noop, fmt.Errorf("project directory is not set")
	}

	// --- Create shared dependencies ---

	logger := debuglog.New(env)
	cfg, err := config.Load(env)
	if err != nil {
		log.Printf("WARNING: config: %v (using defaults)", err)
	}
	settings := cfg.Typed()

	store := pdca.NewStore(env.ProjectDir,
		pdca.WithLogger(logger),
		pdca.WithFeaturePatterns(settings.FeaturePatterns),
	)
	policy := automation.FromConfig(settings)
	tracker := task.NewTracker(store, policy, logger)
	mem := memory.New(env.ProjectDir, logger)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"bkit",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register PDCA tools ---

	statusTool := tools.NewStatusTool(store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	updateTool := tools.NewUpdateTool(store)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	advanceTool := tools.NewAdvanceTool(store, policy)
	s.AddTool(advanceTool.Definition(), advanceTool.Handle)

	transitionTool := tools.NewValidateTransitionTool(store)
	s.AddTool(transitionTool.Definition(), transitionTool.Handle)

	chainTool := tools.NewChainTool(store, tracker, cfg)
	s.AddTool(chainTool.Definition(), chainTool.Handle)

	classifyTool := tools.NewClassifyTool()
	s.AddTool(classifyTool.Definition(), classifyTool.Handle)

	ambiguityTool := tools.NewAmbiguityTool(store)
	s.AddTool(ambiguityTool.Definition(), ambiguityTool.Handle)

	memoryTool := memtools.NewMemoryTool(mem)
	s.AddTool(memoryTool.Definition(), memoryTool.Handle)

	// --- Register journal tools ---
	//
	// The journal is optional: if the database cannot be opened the PDCA
	// tools keep working and the journal tools are not registered.

	cleanup := func() { _ = logger.Close() }
	j, jErr := journal.Open(journal.Path(env.ProjectDir))
	if jErr != nil {
		log.Printf("WARNING: journal disabled: %v", jErr)
		j = nil
	} else {
		cleanup = func() {
			if err := j.Close(); err != nil {
				log.Printf("WARNING: journal close: %v", err)
			}
			_ = logger.Close()
		}
		registerJournalTools(s, j)
	}

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store, j, mem)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)
	s.AddResource(resourceHandler.MemoryResource(), resourceHandler.HandleMemory)
	if j != nil {
		s.AddResource(resourceHandler.JournalResource(), resourceHandler.HandleJournal)
	}

	return s, cleanup, nil
}

// noop is the cleanup returned when New fails.
func noop() {}

// registerJournalTools registers the five hook journal tools.
func registerJournalTools(s *server.MCPServer, j *journal.Store) {
	searchTool := memtools.NewSearchTool(j)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	recentTool := memtools.NewRecentTool(j)
	s.AddTool(recentTool.Definition(), recentTool.Handle)

	contextTool := memtools.NewContextTool(j)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	sessionTool := memtools.NewSessionTool(j)
	s.AddTool(sessionTool.Definition(), sessionTool.Handle)

	statsTool := memtools.NewStatsTool(j)
	s.AddTool(statsTool.Definition(), statsTool.Handle)
}

// serverInstructions tells the AI how to drive the PDCA cycle through
// bkit.
func serverInstructions() string {
	return `You have access to bkit, a PDCA (Plan-Do-Check-Act) workflow server.

## THE CYCLE

Every feature moves through plan → design → do → check → act → report.

- plan: write docs/01-plan/features/<feature>.plan.md
- design: write docs/02-design/features/<feature>.design.md
- do: implement the design
- check: compare the code with the design and record a match rate (0-100)
- act: fix the gaps, then check again
- report: write docs/04-report/features/<feature>.report.md

A check at or above the project's threshold (90% by default) goes to
report; below it goes to act. Iterations are capped (5 by default).

## TOOLS

- pdca_status: where every feature stands. Call it first.
- pdca_update: start a feature or set its phase directly.
- pdca_advance: move a feature to its next phase. Requires the current
  phase's document unless force is set.
- pdca_validate_transition: dry-run a phase change.
- pdca_chain: create or inspect the plan → report task chain.
- pdca_classify: size a change to decide how much process it needs.
- pdca_ambiguity: score a request; ask the returned questions when it
  needs clarification.
- bkit_memory: small facts that survive across sessions.
- journal_*: what the hooks did in earlier sessions.

## RULES

1. Never skip a phase. Going back is always allowed.
2. Do not start coding a feature classified as feature or major without
   a design document.
3. Ask clarifying questions before acting on an ambiguous request.
4. Record the match rate after every gap analysis.`
}
