package task

import (
	"fmt"
	"time"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Tracker persists task IDs and phase progress through a pdca.Store.
type Tracker struct {
	store  *pdca.Store
	policy automation.Policy
	log    *debuglog.Logger
}

// NewTracker wires a tracker to store under policy.
func NewTracker(store *pdca.Store, policy automation.Policy, log *debuglog.Logger) *Tracker {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Tracker{store: store, policy: policy, log: log}
}

// SaveTaskID records id as the task of feature's phase and as the current
// task. Does nothing when there is no status document.
func (t *Tracker) SaveTaskID(feature string, phase pdca.Phase, id string) error {
	err := t.store.Modify(func(st *pdca.Status) bool {
		fs, ok := st.Features[feature]
		if !ok || fs == nil {
			fs = &pdca.FeatureState{
				Phase:       phase,
				PhaseNumber: pdca.PhaseNumber(phase),
				Timestamps:  map[string]string{"started": pdca.Now()},
			}
			st.Features[feature] = fs
		}
		if fs.Tasks == nil {
			fs.Tasks = map[string]string{}
		}
		fs.Tasks[string(phase)] = id
		fs.CurrentTaskID = id
		return true
	})
	if err == nil {
		t.log.Log("task", "Saved task ID", map[string]any{"feature": feature, "phase": phase, "taskId": id})
	}
	return err
}

// TaskID returns the saved task ID for feature's phase, or "".
func (t *Tracker) TaskID(feature string, phase pdca.Phase) string {
	fs := t.store.Feature(feature)
	if fs == nil || fs.Tasks == nil {
		return ""
	}
	return fs.Tasks[string(phase)]
}

// CurrentPhase returns feature's phase, or "".
func (t *Tracker) CurrentPhase(feature string) pdca.Phase {
	if fs := t.store.Feature(feature); fs != nil {
		return fs.Phase
	}
	return ""
}

// PhaseTask is one row of a chain status.
type PhaseTask struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// ChainStatus summarizes every phase of a feature's chain.
type ChainStatus struct {
	Exists       bool                     `json:"exists"`
	Feature      string                   `json:"feature,omitempty"`
	CurrentPhase pdca.Phase               `json:"currentPhase,omitempty"`
	MatchRate    *int                     `json:"matchRate"`
	Tasks        map[pdca.Phase]PhaseTask `json:"tasks"`
}

// ChainStatus marks phases before the current one completed, the current
// one in_progress, and later ones pending.
func (t *Tracker) ChainStatus(feature string) ChainStatus {
	fs := t.store.Feature(feature)
	if fs == nil {
		return ChainStatus{Tasks: map[pdca.Phase]PhaseTask{}}
	}

	current := pdca.PhaseNumber(fs.Phase)
	tasks := make(map[pdca.Phase]PhaseTask, len(pdca.PhaseOrder))
	for _, phase := range pdca.PhaseOrder {
		order := pdca.PhaseNumber(phase)
		status := "pending"
		switch {
		case order == current:
			status = "in_progress"
		case order < current:
			status = "completed"
		}
		tasks[phase] = PhaseTask{TaskID: fs.Tasks[string(phase)], Status: status}
	}
	return ChainStatus{
		Exists:       true,
		Feature:      feature,
		CurrentPhase: fs.Phase,
		MatchRate:    fs.MatchRate,
		Tasks:        tasks,
	}
}

// StatusUpdate is applied by UpdateTaskStatus. Nil fields are left alone.
type StatusUpdate struct {
	Completed      bool
	MatchRate      *int
	IterationCount *int
}

// UpdateTaskStatus stamps <phase>Completed when the phase finished and
// records the match rate and iteration count.
func (t *Tracker) UpdateTaskStatus(phase pdca.Phase, feature string, u StatusUpdate) error {
	return t.store.Modify(func(st *pdca.Status) bool {
		fs, ok := st.Features[feature]
		if !ok || fs == nil {
			return false
		}
		if u.Completed {
			if fs.Timestamps == nil {
				fs.Timestamps = map[string]string{}
			}
			fs.Timestamps[string(phase)+"Completed"] = pdca.Now()
		}
		if u.MatchRate != nil {
			rate := *u.MatchRate
			fs.MatchRate = &rate
		}
		if u.IterationCount != nil {
			fs.IterationCount = *u.IterationCount
		}
		return true
	})
}

// NextContext feeds TriggerNext.
type NextContext struct {
	MatchRate      int
	IterationCount int
	MaxIterations  int
	Threshold      int
}

// NextAction is what TriggerNext recommends.
type NextAction struct {
	Feature              string              `json:"feature"`
	NextPhase            pdca.Phase          `json:"nextPhase"`
	Trigger              *automation.Trigger `json:"trigger"`
	MaxIterationsReached bool                `json:"maxIterationsReached,omitempty"`
}

// TriggerNext picks the phase after phase: check branches on the match
// rate, act returns to check, everything else follows the cycle. Returns
// nil when the policy forbids advancing.
func (t *Tracker) TriggerNext(feature string, phase pdca.Phase, ctx NextContext) *NextAction {
	if !t.policy.ShouldAutoAdvance(phase) {
		t.log.Log("task", "Auto-advance disabled for phase", map[string]any{"phase": phase})
		return nil
	}
	threshold := ctx.Threshold
	if threshold == 0 {
		threshold = t.policy.MatchRateThreshold
	}
	maxIter := ctx.MaxIterations
	if maxIter == 0 {
		maxIter = t.policy.MaxIterations
	}

	var next pdca.Phase
	switch phase {
	case pdca.PhaseCheck:
		next = pdca.PhaseAct
		if ctx.MatchRate >= threshold {
			next = pdca.PhaseReport
		}
	case pdca.PhaseAct:
		next = pdca.PhaseCheck
	default:
		next = pdca.NextPhase(phase)
	}
	if next == "" {
		return nil
	}

	action := &NextAction{
		Feature:   feature,
		NextPhase: next,
		Trigger:   &automation.Trigger{Skill: "pdca", Args: fmt.Sprintf("%s %s", Verb(next), feature)},
	}
	if phase == pdca.PhaseCheck && next == pdca.PhaseAct && maxIter > 0 && ctx.IterationCount >= maxIter {
		action.MaxIterationsReached = true
	}
	t.log.Log("task", "Triggering next action", map[string]any{
		"feature": feature, "from": phase, "to": next, "matchRate": ctx.MatchRate,
	})
	return action
}

// Verb is the /pdca action that enters phase next.
func Verb(next pdca.Phase) string {
	switch next {
	case pdca.PhaseCheck:
		return "analyze"
	case pdca.PhaseAct:
		return "iterate"
	}
	return string(next)
}

// CreateChain builds the plan→report chain with blockedBy links and saves
// each task ID. With SkipIfExists, a feature that already has a plan task
// is left alone and the returned chain is marked Skipped.
func (t *Tracker) CreateChain(feature string, opts Options) (*Chain, error) {
	if opts.SkipIfExists && t.TaskID(feature, pdca.PhasePlan) != "" {
		return &Chain{Feature: feature, Tasks: map[pdca.Phase]*Task{}, Phases: ChainPhases, CreatedAt: pdca.Now(), Skipped: true}, nil
	}

	chain := &Chain{
		Feature:   feature,
		Tasks:     make(map[pdca.Phase]*Task, len(ChainPhases)),
		Phases:    ChainPhases,
		CreatedAt: pdca.Now(),
	}
	var prev *Task
	for _, phase := range ChainPhases {
		task := &Task{
			ID:          newID(phase, feature),
			Subject:     Subject(phase, feature),
			Description: Description(phase, feature, ""),
			Metadata:    NewMetadata(phase, feature, opts.Level),
			BlockedBy:   []string{},
		}
		if prev != nil {
			task.BlockedBy = []string{prev.ID}
		}
		chain.Tasks[phase] = task
		if err := t.SaveTaskID(feature, phase, task.ID); err != nil {
			return chain, fmt.Errorf("saving %s task: %w", phase, err)
		}
		prev = task
	}
	t.log.Log("task", "Created PDCA task chain", map[string]any{"feature": feature, "taskCount": len(ChainPhases)})
	return chain, nil
}

// AutoCreate builds a pending task for phase and records its ID.
func (t *Tracker) AutoCreate(feature string, phase pdca.Phase, opts Options) (*Task, error) {
	task := AutoCreate(feature, phase, opts)
	if err := t.SaveTaskID(feature, phase, task.ID); err != nil {
		return task, err
	}
	t.log.Log("task", "Auto-created PDCA task", map[string]any{"taskId": task.ID, "phase": phase, "feature": feature})
	return task, nil
}
