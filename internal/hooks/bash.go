package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/permission"
	"github.com/bkit-dev/bkit/internal/session"
)

type commandRule struct {
	pattern string
	reason  string
}

// deployRules are matched case-insensitively while the deployment skill
// is active.
var deployRules = []commandRule{
	{"kubectl delete", "Kubernetes resource deletion"},
	{"terraform destroy", "Infrastructure destruction"},
	{"aws ec2 terminate", "EC2 instance termination"},
	{"helm uninstall", "Helm release removal"},
	{"--force", "Force flag detected"},
	{"production", "Production environment detected"},
}

// qaRules are matched case-sensitively during QA sessions.
var qaRules = []commandRule{
	{"rm -rf", "Recursive force deletion"},
	{"rm -r", "Recursive deletion"},
	{"DROP TABLE", "SQL table drop"},
	{"DROP DATABASE", "SQL database drop"},
	{"DELETE FROM", "SQL mass deletion"},
	{"TRUNCATE", "SQL table truncation"},
	{"> /dev/", "Device write"},
	{"mkfs", "Filesystem creation"},
	{"dd if=", "Low-level disk operation"},
	{":(){ :|:& };:", "Fork bomb"},
}

// qaCommandKeywords mark commands worth journaling while qa-monitor runs.
var qaCommandKeywords = []string{"docker", "curl", "npm test", "jest", "pytest", "go test"}

func qaActive(s *session.Session) bool {
	return s.ActiveSkill == "zero-script-qa" || bare(s.ActiveAgent) == "qa-monitor"
}

func matchRule(rules []commandRule, cmd string, fold bool) (commandRule, bool) {
	if fold {
		cmd = strings.ToLower(cmd)
	}
	for _, r := range rules {
		p := r.pattern
		if fold {
			p = strings.ToLower(p)
		}
		if strings.Contains(cmd, p) {
			return r, true
		}
	}
	return commandRule{}, false
}

func bashPre(s *session.Session, in hookio.Input) hookio.Result {
	cmd := in.Command()
	if cmd == "" {
		return hookio.Empty()
	}

	var notes []string
	switch s.Permissions.Check("Bash", cmd) {
	case permission.Deny:
		res := hookio.Block(fmt.Sprintf("Command '%s' is denied by permission policy.", hookio.TruncateTo(cmd, 100)))
		res.ExitCode = 2
		return res
	case permission.Ask:
		notes = append(notes, fmt.Sprintf("Command '%s' requires confirmation.", hookio.TruncateTo(cmd, 100)))
	}

	if s.ActiveSkill == "phase-9-deployment" {
		if r, ok := matchRule(deployRules, cmd, true); ok {
			return hookio.Block(fmt.Sprintf("Deployment safety: %s. Command '%s' requires manual confirmation.", r.reason, r.pattern))
		}
	}
	if qaActive(s) {
		if r, ok := matchRule(qaRules, cmd, false); ok {
			return hookio.Block(fmt.Sprintf("QA safety: %s. Destructive command '%s' blocked during testing.", r.reason, r.pattern))
		}
	}

	if ctx := firstNonEmpty(s.ActiveSkill, bare(s.ActiveAgent)); ctx != "" {
		notes = append(notes, fmt.Sprintf("Bash command validated for %s.", ctx))
	} else {
		notes = append(notes, "Bash command validated.")
	}
	return hookio.Allow(strings.Join(notes, " | "), EventPreToolUse)
}

func qaPreBash(s *session.Session, in hookio.Input) hookio.Result {
	if !qaActive(s) {
		return hookio.Empty()
	}
	cmd := in.Command()
	if r, ok := matchRule(qaRules, cmd, false); ok {
		return hookio.Block(fmt.Sprintf("Destructive command detected: '%s'. QA testing should not include destructive operations.", r.pattern))
	}
	return hookio.Allow("QA Testing: Command validated as safe for testing environment.", EventPreToolUse)
}

func phase9DeployPre(s *session.Session, in hookio.Input) hookio.Result {
	cmd := strings.ToLower(in.Command())
	if !strings.Contains(cmd, "vercel") && !strings.Contains(cmd, "deploy") && !strings.Contains(cmd, "kubectl apply") {
		return hookio.Empty()
	}
	if _, err := os.Stat(filepath.Join(s.Env.ProjectDir, ".env.example")); err != nil {
		return hookio.Allow("⚠️ Pre-deployment Check:\n"+
			"- Missing .env.example file\n"+
			"- Ensure all required environment variables are documented\n"+
			"- Verify CI/CD secrets are configured", EventPreToolUse)
	}
	return hookio.Allow("✅ Pre-deployment Check:\n"+
		"- .env.example found\n"+
		"- Verify CI/CD secrets match .env.example\n"+
		"- Run scripts/check-env.sh if available", EventPreToolUse)
}

// bashPost journals test and infrastructure commands run by qa-monitor.
func bashPost(s *session.Session, in hookio.Input) hookio.Result {
	if bare(s.ActiveAgent) != "qa-monitor" {
		return hookio.Empty()
	}
	cmd := in.Command()
	for _, k := range qaCommandKeywords {
		if strings.Contains(cmd, k) {
			s.Log.Log("QA", "QA-relevant command executed", map[string]any{"command": hookio.TruncateTo(cmd, 100)})
			s.Record(journal.Event{
				Event:    EventPostToolUse,
				Handler:  "qa-command",
				ToolName: "Bash",
				Decision: "allow",
				Message:  journal.Truncate(cmd, 100),
			})
			break
		}
	}
	return hookio.Empty()
}
