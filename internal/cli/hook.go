package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/hooks"
	"github.com/bkit-dev/bkit/internal/session"
)

// exit is a package-level variable for testability.
var exit = os.Exit

// HookCmd returns the hook command - parent for host hook handlers
func HookCmd() *cobra.Command {
	var skill, agent string

	cmd := &cobra.Command{
		Use:   "hook <event>",
		Short: "Handle Claude Code and Gemini CLI hook events",
		Long: `Process host hook events.

This command is called by the host's hooks and reads event data from stdin.
Each event has a handler subcommand. Output follows the host's hook
protocol; the process exits 2 only when a tool call is denied.

Available events:
  ` + strings.Join(hooks.Events, ", ") + `

Example:
  echo '{"tool_name":"Bash","tool_input":{"command":"ls"}}' | bkit hook PreToolUse`,
	}
	cmd.PersistentFlags().StringVar(&skill, "skill", "", "Active skill (defaults to BKIT_ACTIVE_SKILL)")
	cmd.PersistentFlags().StringVar(&agent, "agent", "", "Active agent (defaults to BKIT_ACTIVE_AGENT)")

	for _, event := range hooks.Events {
		cmd.AddCommand(hookEventCmd(event, &skill, &agent))
	}

	// Single handlers, wired from hooks.json by name.
	run := &cobra.Command{
		Use:    "run <handler>",
		Short:  "Run one named hook handler",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, session.Options{Skill: skill, Agent: agent}, func(s *session.Session, in hookio.Input) hookio.Result {
				res, ok := hooks.Run(s, args[0], in)
				if !ok {
					s.Log.Log("Hook", "Unknown handler", map[string]any{"name": args[0]})
				}
				return res
			})
		},
	}
	cmd.AddCommand(run)

	return cmd
}

func hookEventCmd(event string, skill, agent *string) *cobra.Command {
	return &cobra.Command{
		Use:   event,
		Short: fmt.Sprintf("Handle %s event", event),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, session.Options{Skill: *skill, Agent: *agent}, func(s *session.Session, in hookio.Input) hookio.Result {
				return hooks.Dispatch(s, event, in)
			})
		},
	}
}

// runHook reads the payload, runs handle and writes its answer. Every
// failure falls open: the host sees an empty, successful result.
func runHook(cmd *cobra.Command, opts session.Options, handle func(*session.Session, hookio.Input) hookio.Result) error {
	in := readInput(cmd.InOrStdin())
	env := resolveEnv()

	s := session.New(env, opts)
	defer func() { _ = s.Close() }()

	res := handle(s, in)
	if err := hookio.Write(cmd.OutOrStdout(), env.Platform, res); err != nil {
		s.Log.Log("Hook", "Failed to write output", map[string]any{"error": err.Error()})
		return nil //nolint:nilerr // intentional fail-open design
	}
	if res.ExitCode == 2 {
		_ = s.Close()
		exit(2)
	}
	return nil
}

func readInput(r io.Reader) hookio.Input {
	if r == os.Stdin {
		return hookio.ReadStdin()
	}
	return hookio.Read(r)
}
