package hooks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/session"
	"github.com/bkit-dev/bkit/internal/task"
)

// minAutoFixRate is the match rate below which auto-fix alone is unlikely
// to close the gap.
const minAutoFixRate = 70

var (
	pdcaActionRe = regexp.MustCompile(`(?i)pdca\s+(plan|design|do|analyze|iterate|report|status|next)`)
	matchRateRe  = regexp.MustCompile(`(?i)(Overall|Match Rate|매치율|일치율|Design Match)[^0-9]*(\d+)`)
	featureRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)feature["']?[:\s]+["']?(\w[\w-]*)`),
		regexp.MustCompile(`(?i)analyzing\s+["']?(\w[\w-]*)`),
	}

	iterCompleteRe = regexp.MustCompile(`(?i)(완료|Complete|Completed|>= 90%|매치율.*9[0-9]%|Match Rate.*9[0-9]%|passed|성공|Successfully)`)
	iterMaxRe      = regexp.MustCompile(`(?i)(max.*iteration|최대.*반복|5/5|limit reached)`)
	iterImprovedRe = regexp.MustCompile(`(?i)(improved|개선|수정.*완료|fixed|changes.*made|파일.*수정)`)
	iterChangesRe  = regexp.MustCompile(`(?i)(\d+)\s*(files?|파일)`)
)

// actionPhases maps a /pdca action to the phase it completes.
var actionPhases = map[string]pdca.Phase{
	"plan":    pdca.PhasePlan,
	"design":  pdca.PhaseDesign,
	"do":      pdca.PhaseDo,
	"analyze": pdca.PhaseCheck,
	"iterate": pdca.PhaseAct,
	"report":  pdca.PhaseCompleted,
}

func parseMatchRate(text string) (int, bool) {
	m := matchRateRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	return n, err == nil
}

// featureFromText finds the feature an agent's output talks about,
// falling back to the primary feature.
func featureFromText(s *session.Session, text string) string {
	for _, re := range featureRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return s.Store.Primary()
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orUnknown(feature string) string {
	if feature == "" {
		return "unknown"
	}
	return feature
}

func optionLines(opts []automation.Option) string {
	lines := make([]string, 0, len(opts))
	for _, o := range opts {
		lines = append(lines, fmt.Sprintf("- **%s** → %s", o.Label, o.Description))
	}
	return strings.Join(lines, "\n")
}

// mandatoryPrompt wraps guidance with the instruction to ask the user.
func mandatoryPrompt(guidance, prompt string, opts []automation.Option) string {
	if prompt == "" {
		prompt = "(choose the next step)"
	}
	return guidance + "\n\n## 🚨 MANDATORY: Call AskUserQuestion\n\n" +
		"Ask the user about the next step with these parameters:\n\n" +
		prompt + "\n\n### Actions by selection:\n" + optionLines(opts)
}

// ─── /pdca skill ───

type pdcaStep struct {
	nextAction string
	message    string
	question   string
	options    []automation.Option
}

func pdcaSteps(feature string) map[string]pdcaStep {
	f := feature
	if f == "" {
		f = "[feature]"
	}
	keep := automation.Option{Label: "Later", Description: "Keep the current state"}
	return map[string]pdcaStep{
		"plan": {"design", "Plan document created.", "Proceed to the Design phase?", []automation.Option{
			{Label: "Start Design (recommended)", Description: "/pdca design " + f}, keep,
		}},
		"design": {"do", "Design document created.", "Start the implementation?", []automation.Option{
			{Label: "Start implementation (recommended)", Description: "/pdca do " + f}, keep,
		}},
		"do": {"analyze", "Implementation guide provided.", "Run gap analysis once the implementation is done.", []automation.Option{
			{Label: "Run gap analysis", Description: "/pdca analyze " + f},
			{Label: "Keep implementing", Description: "Continue the implementation"},
		}},
		"analyze": {"iterate", "Gap analysis complete.", "Choose the next step based on the result.", []automation.Option{
			{Label: "Auto-improve", Description: "/pdca iterate " + f},
			{Label: "Completion report", Description: "/pdca report " + f},
			{Label: "Fix manually", Description: "Edit the code, then analyze again"},
		}},
		"iterate": {"analyze", "Automatic improvement complete.", "Run gap analysis again?", []automation.Option{
			{Label: "Re-analyze (recommended)", Description: "/pdca analyze " + f},
			{Label: "Completion report", Description: "/pdca report " + f},
		}},
		"report": {"", "Completion report created.", "The PDCA cycle is complete!", []automation.Option{
			{Label: "Archive", Description: "Tidy the documents with /archive"},
			{Label: "Start a new feature", Description: "/pdca plan [new-feature]"},
		}},
		"status": {},
		"next":   {},
	}
}

type pdcaSkillResult struct {
	Action          *string `json:"action"`
	Feature         string  `json:"feature"`
	NextAction      *string `json:"nextAction"`
	AutomationLevel string  `json:"automationLevel"`
}

type pdcaStopOutput struct {
	Decision      string              `json:"decision"`
	HookEventName string              `json:"hookEventName"`
	SkillResult   pdcaSkillResult     `json:"skillResult"`
	Guidance      *string             `json:"guidance"`
	UserPrompt    *string             `json:"userPrompt"`
	AutoTrigger   *automation.Trigger `json:"autoTrigger"`
	SystemMessage *string             `json:"systemMessage"`
}

// pdcaAction reads the /pdca action and feature from the skill args,
// falling back to scanning the payload.
func pdcaAction(in hookio.Input) (action, feature string) {
	action, feature = skillArgs(in.String("tool_input", "args"))
	action = strings.ToLower(action)
	if _, ok := pdcaSteps("")[action]; ok {
		return action, feature
	}
	if m := pdcaActionRe.FindStringSubmatch(in.JSON()); m != nil {
		return strings.ToLower(m[1]), ""
	}
	return "", ""
}

// pdcaSkillStop records the finished /pdca action, keeps the task chain
// moving and asks what to do next.
func pdcaSkillStop(s *session.Session, in hookio.Input) hookio.Result {
	action, argFeature := pdcaAction(in)
	feature := s.Store.ExtractFeature(pdca.FeatureContext{Feature: argFeature})

	matchRate := 0
	if fs := s.Store.Feature(feature); fs != nil && fs.MatchRate != nil {
		matchRate = *fs.MatchRate
	}

	step, hasStep := pdcaSteps(feature)[action]
	phase := actionPhases[action]

	var guidance, prompt string
	var trigger *automation.Trigger
	if hasStep && step.message != "" {
		guidance = "✅ " + step.message
		if feature != "" && s.Policy.ShouldAutoAdvance(phase) {
			trigger = s.Policy.GenerateAutoTrigger(phase, automation.TriggerContext{Feature: feature, MatchRate: matchRate})
		}
		if trigger != nil {
			guidance += fmt.Sprintf("\n\n🤖 [%s] Auto-advancing: %s", s.Policy.Level, trigger.String())
		} else if step.question != "" {
			header := "PDCA"
			if action != "" {
				header = strings.ToUpper(action[:1]) + action[1:]
			}
			prompt = askJSON(automation.Question{Question: step.question, Header: header, Options: step.options})
		}
	}

	if phase != "" && feature != "" {
		if err := s.Store.Update(feature, phase, pdca.Patch{"lastAction": action}); err != nil {
			s.Log.Log("Skill:pdca:Stop", "Failed to update status", map[string]any{"error": err.Error()})
		}
		opts := task.Options{Level: s.Level(), SkipIfExists: true}
		if action == "plan" {
			chain, err := s.Tracker.CreateChain(feature, opts)
			if err != nil {
				s.Log.Log("Skill:pdca:Stop", "Task chain creation failed", map[string]any{"error": err.Error()})
			} else if !chain.Skipped {
				guidance += fmt.Sprintf("\n\n📋 PDCA task chain created (%d tasks)", len(chain.Phases))
			}
		}
		if next := s.Policy.NextAfter(phase, matchRate); next != "" {
			if err := s.Tracker.UpdateTaskStatus(phase, feature, task.StatusUpdate{Completed: true}); err != nil {
				s.Log.Log("Skill:pdca:Stop", "Failed to update task", map[string]any{"error": err.Error()})
			}
			if _, err := s.Tracker.AutoCreate(feature, next, opts); err != nil {
				s.Log.Log("Skill:pdca:Stop", "Failed to create next task", map[string]any{"error": err.Error()})
			}
		}
	}

	if s.Env.IsGemini() {
		if guidance == "" {
			return hookio.Empty()
		}
		lines := []string{guidance}
		if step.question != "" {
			lines = append(lines, "", step.question)
			for i, o := range step.options {
				lines = append(lines, fmt.Sprintf("  %d. %s: %s", i+1, o.Label, o.Description))
			}
		}
		return hookio.Raw(strings.Join(lines, "\n"))
	}

	out := pdcaStopOutput{
		Decision:      "allow",
		HookEventName: "Skill:pdca:Stop",
		SkillResult: pdcaSkillResult{
			Action:          strPtr(action),
			Feature:         orUnknown(feature),
			NextAction:      strPtr(step.nextAction),
			AutomationLevel: s.Policy.Level,
		},
		Guidance:    strPtr(guidance),
		UserPrompt:  strPtr(prompt),
		AutoTrigger: trigger,
	}
	if guidance != "" {
		out.SystemMessage = strPtr(mandatoryPrompt(guidance, prompt, step.options))
	}
	return hookio.Raw(out)
}

// ─── Agents ───

type analysisResult struct {
	MatchRate        int                 `json:"matchRate"`
	Feature          string              `json:"feature"`
	IterationCount   int                 `json:"iterationCount"`
	MaxIterations    int                 `json:"maxIterations"`
	Threshold        int                 `json:"threshold"`
	NextStep         string              `json:"nextStep"`
	PhaseAdvance     *automation.Advance `json:"phaseAdvance"`
	AutoCreatedTasks []string            `json:"autoCreatedTasks"`
}

type iterationResult struct {
	Feature          string              `json:"feature"`
	Iteration        int                 `json:"iteration"`
	MaxIterations    int                 `json:"maxIterations"`
	MatchRate        int                 `json:"matchRate"`
	Threshold        int                 `json:"threshold"`
	Status           string              `json:"status"`
	ChangedFiles     int                 `json:"changedFiles"`
	PhaseAdvance     *automation.Advance `json:"phaseAdvance"`
	AutoCreatedTasks []string            `json:"autoCreatedTasks"`
}

type agentStopOutput struct {
	Decision        string              `json:"decision"`
	HookEventName   string              `json:"hookEventName"`
	AnalysisResult  *analysisResult     `json:"analysisResult,omitempty"`
	IterationResult *iterationResult    `json:"iterationResult,omitempty"`
	Guidance        string              `json:"guidance"`
	TaskGuidance    string              `json:"taskGuidance"`
	UserPrompt      string              `json:"userPrompt"`
	AutoTrigger     *automation.Trigger `json:"autoTrigger"`
	SystemMessage   string              `json:"systemMessage"`
}

func (o agentStopOutput) result(gemini bool) hookio.Result {
	if gemini {
		return hookio.Raw(o.Guidance + "\n\n" + o.TaskGuidance)
	}
	return hookio.Raw(o)
}

// autoCreate creates a task per phase and returns the subjects.
func autoCreate(s *session.Session, feature string, phases ...pdca.Phase) []string {
	subjects := []string{}
	opts := task.Options{Level: s.Level()}
	for _, p := range phases {
		t, err := s.Tracker.AutoCreate(feature, p, opts)
		if err != nil {
			s.Log.Log("Task", "Auto-create failed", map[string]any{"error": err.Error(), "phase": p})
		}
		if t != nil {
			subjects = append(subjects, t.Subject)
		}
	}
	return subjects
}

type gapBranch struct {
	nextStep string
	guidance string
	question automation.Question
}

func gapBranchFor(feature string, rate, threshold, iter, maxIter int) gapBranch {
	report := automation.Option{Label: "Generate report", Description: "/pdca report " + feature}
	iterate := automation.Option{Label: "Auto-fix", Description: "/pdca iterate " + feature}
	manual := automation.Option{Label: "Fix manually", Description: "Edit the code, then run /pdca analyze " + feature}
	switch {
	case rate >= threshold:
		return gapBranch{"pdca-report",
			fmt.Sprintf("✅ Gap analysis passed: %d%% (threshold %d%%).", rate, threshold),
			automation.Question{Question: fmt.Sprintf("Match rate %d%% meets the threshold. What next?", rate), Header: "Complete", Options: []automation.Option{
				report,
				{Label: "Further improvement", Description: "/pdca iterate " + feature},
				{Label: "Later", Description: "Keep the current state"},
			}}}
	case iter >= maxIter:
		return gapBranch{"manual",
			fmt.Sprintf("⚠️ Maximum iterations reached (%d/%d). Match rate: %d%%.", iter, maxIter, rate),
			automation.Question{Question: fmt.Sprintf("Auto-fix ran %d times and the match rate is %d%%. How should we proceed?", iter, rate), Header: "Max Iterations", Options: []automation.Option{
				manual,
				{Label: "Generate report as is", Description: "/pdca report " + feature},
				{Label: "Revise design", Description: "/pdca design " + feature},
			}}}
	case rate >= minAutoFixRate:
		return gapBranch{"pdca-iterate",
			fmt.Sprintf("🔄 Match rate %d%% is below the %d%% threshold. Auto-fix recommended.", rate, threshold),
			automation.Question{Question: fmt.Sprintf("Match rate is %d%%. Run auto-fix?", rate), Header: "Auto-Fix", Options: []automation.Option{
				iterate, manual, report,
			}}}
	}
	return gapBranch{"pdca-iterate",
		fmt.Sprintf("❌ Match rate %d%% is low. Review the design or run auto-fix.", rate),
		automation.Question{Question: fmt.Sprintf("Match rate is low (%d%%). How should we proceed?", rate), Header: "Low Match", Options: []automation.Option{
			iterate,
			{Label: "Revise design", Description: "/pdca design " + feature},
			manual,
		}}}
}

// gapDetectorStop records the match rate the gap detector reported and
// routes the feature to report or act.
func gapDetectorStop(s *session.Session, in hookio.Input) hookio.Result {
	text := in.JSON()
	rate, _ := parseMatchRate(text)
	feature := featureFromText(s, text)
	threshold, maxIter := s.Policy.MatchRateThreshold, s.Policy.MaxIterations

	iter := 0
	if fs := s.Store.Feature(feature); fs != nil {
		iter = fs.IterationCount
	}
	br := gapBranchFor(feature, rate, threshold, iter, maxIter)
	passed := rate >= threshold

	res := analysisResult{
		MatchRate:        rate,
		Feature:          orUnknown(feature),
		IterationCount:   iter,
		MaxIterations:    maxIter,
		Threshold:        threshold,
		NextStep:         br.nextStep,
		AutoCreatedTasks: []string{},
	}
	var trigger *automation.Trigger
	if feature != "" {
		err := s.Store.Update(feature, pdca.PhaseCheck, pdca.Patch{
			"matchRate":   rate,
			"analysisDoc": fmt.Sprintf("docs/03-analysis/%s.analysis.md", feature),
		})
		if err != nil {
			s.Log.Log("Agent:gap-detector:Stop", "Failed to update status", map[string]any{"error": err.Error()})
		}
		adv, err := s.Policy.AutoAdvance(s.Store, feature, pdca.PhaseCheck, rate)
		if err != nil {
			s.Log.Log("Agent:gap-detector:Stop", "Auto-advance failed", map[string]any{"error": err.Error()})
		}
		res.PhaseAdvance = adv

		if err := s.Tracker.UpdateTaskStatus(pdca.PhaseCheck, feature, task.StatusUpdate{Completed: passed, MatchRate: &rate}); err != nil {
			s.Log.Log("Agent:gap-detector:Stop", "Failed to update task", map[string]any{"error": err.Error()})
		}
		phases := []pdca.Phase{pdca.PhaseCheck}
		if passed {
			phases = append(phases, pdca.PhaseReport)
		} else if iter < maxIter {
			phases = append(phases, pdca.PhaseAct)
		}
		res.AutoCreatedTasks = autoCreate(s, feature, phases...)

		if next := s.Tracker.TriggerNext(feature, pdca.PhaseCheck, task.NextContext{
			MatchRate: rate, IterationCount: iter, MaxIterations: maxIter, Threshold: threshold,
		}); next != nil && !next.MaxIterationsReached {
			trigger = next.Trigger
		}
	}

	taskGuidance := task.TaskGuidance(pdca.PhaseAct, orUnknown(feature), pdca.PhaseCheck)
	if passed {
		taskGuidance = task.TaskGuidance(pdca.PhaseCheck, orUnknown(feature), pdca.PhaseDo)
	}
	prompt := askJSON(br.question)
	out := agentStopOutput{
		Decision:       "allow",
		HookEventName:  "Agent:gap-detector:Stop",
		AnalysisResult: &res,
		Guidance:       br.guidance,
		TaskGuidance:   taskGuidance,
		UserPrompt:     prompt,
		AutoTrigger:    trigger,
		SystemMessage:  mandatoryPrompt(br.guidance, prompt, br.question.Options),
	}
	return out.result(s.Env.IsGemini())
}

// Iteration outcomes.
const (
	iterCompleted = "completed"
	iterMaxed     = "max_iterations"
	iterImproved  = "improved"
	iterUnknown   = "unknown"
)

func iterationQuestion(status, feature string, iter, maxIter, rate, changed int) (string, automation.Question) {
	analyze := automation.Option{Label: "Re-analyze (recommended)", Description: "/pdca analyze " + feature}
	report := automation.Option{Label: "Generate report", Description: "/pdca report " + feature}
	later := automation.Option{Label: "Later", Description: "Keep the current state"}
	switch status {
	case iterCompleted:
		return fmt.Sprintf("✅ Iteration %d complete. Match rate: %d%%.", iter, rate),
			automation.Question{Question: "The implementation meets the design. Generate the completion report?", Header: "Completed", Options: []automation.Option{
				report, {Label: "Further improvement", Description: "/pdca iterate " + feature}, later,
			}}
	case iterMaxed:
		return fmt.Sprintf("⚠️ Maximum iterations reached (%d/%d). Match rate: %d%%.", iter, maxIter, rate),
			automation.Question{Question: "Auto-fix reached its iteration limit. How should we proceed?", Header: "Max Iterations", Options: []automation.Option{
				{Label: "Fix manually", Description: "Edit the code, then run /pdca analyze " + feature},
				{Label: "Generate report as is", Description: "/pdca report " + feature},
				{Label: "Revise design", Description: "/pdca design " + feature},
			}}
	case iterImproved:
		return fmt.Sprintf("🔄 Iteration %d applied changes to %d file(s). Re-run gap analysis to verify.", iter, changed),
			automation.Question{Question: "Changes were made. Run gap analysis again?", Header: "Re-Analyze", Options: []automation.Option{
				analyze, {Label: "Keep iterating", Description: "/pdca iterate " + feature}, later,
			}}
	}
	return fmt.Sprintf("Iteration %d finished.", iter),
		automation.Question{Question: "What would you like to do next?", Header: "Next Step", Options: []automation.Option{
			analyze, report, later,
		}}
}

// iteratorStop records one auto-fix iteration and decides whether to
// re-check, report or hand back to the user.
func iteratorStop(s *session.Session, in hookio.Input) hookio.Result {
	text := in.JSON()
	feature := featureFromText(s, text)
	threshold, maxIter := s.Policy.MatchRateThreshold, s.Policy.MaxIterations

	iter := 1
	rate, rateKnown := parseMatchRate(text)
	if fs := s.Store.Feature(feature); fs != nil {
		iter = fs.IterationCount + 1
		if !rateKnown && fs.MatchRate != nil {
			rate, rateKnown = *fs.MatchRate, true
		}
	}
	changed := 0
	if m := iterChangesRe.FindStringSubmatch(text); m != nil {
		changed, _ = strconv.Atoi(m[1])
	}

	status := iterUnknown
	switch {
	case iterCompleteRe.MatchString(text) || (rateKnown && rate >= threshold):
		status = iterCompleted
	case iterMaxRe.MatchString(text) || iter >= maxIter:
		status = iterMaxed
	case iterImprovedRe.MatchString(text) || changed > 0:
		status = iterImproved
	}
	guidance, q := iterationQuestion(status, feature, iter, maxIter, rate, changed)

	res := iterationResult{
		Feature:          orUnknown(feature),
		Iteration:        iter,
		MaxIterations:    maxIter,
		MatchRate:        rate,
		Threshold:        threshold,
		Status:           status,
		ChangedFiles:     changed,
		AutoCreatedTasks: []string{},
	}
	var trigger *automation.Trigger
	if feature != "" {
		patch := pdca.Patch{"iterationCount": iter, "lastIterationStatus": status}
		if rateKnown {
			patch["matchRate"] = rate
		}
		if err := s.Store.Update(feature, pdca.PhaseAct, patch); err != nil {
			s.Log.Log("Agent:pdca-iterator:Stop", "Failed to update status", map[string]any{"error": err.Error()})
		}

		if status == iterCompleted && rate >= threshold {
			if err := s.Store.Complete(feature); err != nil {
				s.Log.Log("Agent:pdca-iterator:Stop", "Failed to complete feature", map[string]any{"error": err.Error()})
			}
		} else {
			adv, err := s.Policy.AutoAdvance(s.Store, feature, pdca.PhaseAct, rate)
			if err != nil {
				s.Log.Log("Agent:pdca-iterator:Stop", "Auto-advance failed", map[string]any{"error": err.Error()})
			}
			res.PhaseAdvance = adv
		}

		upd := task.StatusUpdate{Completed: status == iterCompleted || status == iterImproved, IterationCount: &iter}
		if rateKnown {
			upd.MatchRate = &rate
		}
		if err := s.Tracker.UpdateTaskStatus(pdca.PhaseAct, feature, upd); err != nil {
			s.Log.Log("Agent:pdca-iterator:Stop", "Failed to update task", map[string]any{"error": err.Error()})
		}
		phases := []pdca.Phase{pdca.PhaseAct}
		if status == iterCompleted {
			phases = append(phases, pdca.PhaseReport)
		}
		res.AutoCreatedTasks = autoCreate(s, feature, phases...)

		if status == iterImproved || status == iterCompleted {
			if next := s.Tracker.TriggerNext(feature, pdca.PhaseAct, task.NextContext{
				MatchRate: rate, IterationCount: iter, MaxIterations: maxIter, Threshold: threshold,
			}); next != nil {
				trigger = next.Trigger
			}
		}
	}

	taskGuidance := task.TaskGuidance(pdca.PhaseAct, orUnknown(feature), pdca.PhaseCheck)
	if status == iterCompleted {
		taskGuidance = fmt.Sprintf("Task: Mark current [Act] task as completed. Proceed to /pdca-report %s.", orUnknown(feature))
	}
	prompt := askJSON(q)
	out := agentStopOutput{
		Decision:        "allow",
		HookEventName:   "Agent:pdca-iterator:Stop",
		IterationResult: &res,
		Guidance:        guidance,
		TaskGuidance:    taskGuidance,
		UserPrompt:      prompt,
		AutoTrigger:     trigger,
		SystemMessage:   mandatoryPrompt(guidance, prompt, q.Options),
	}
	return out.result(s.Env.IsGemini())
}
