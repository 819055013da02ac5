// Package planner turns a classification into an ActionPlan. Plans
// carry a human-readable reasoning string alongside the action fields;
// the reasoning is never empty.
package planner

import (
	"context"
	"fmt"
	"strings"

	"nixin/internal/intent"
	"nixin/internal/logging"
	"nixin/internal/nlp"
)

// ConfidenceThreshold gates every rule: below it the planner asks for
// clarification no matter what the intent is. The comparison is
// strictly less-than, so a classification at exactly 0.75 passes.
const ConfidenceThreshold = 0.75

// Action labels the kind of work a plan describes.
type Action string

const (
	ActionStorePreference        Action = "store_preference"
	ActionScheduleWithPreference Action = "schedule_with_preference"
	ActionScheduleDefault        Action = "schedule_default"
	ActionStoreTask              Action = "store_task"
	ActionSemanticRecall         Action = "semantic_recall"
	ActionClarify                Action = "clarify"
	ActionUnknown                Action = "unknown"
)

// NoTimeDetected is the sentinel a store_task plan carries when the
// input had no temporal entity. The dispatcher knows not to echo it.
const NoTimeDetected = "No time detected"

// RecallMatch is a semantic search hit: the remembered text and its
// similarity score.
type RecallMatch struct {
	Match string
	Score float64
}

// Plan is the planner's output. Only the fields relevant to the action
// are populated; Reasoning is always set.
type Plan struct {
	Action    Action
	Reasoning string

	// store_preference
	Key   string
	Value string

	// store_task
	Task   string
	Person string

	// store_task and schedule_with_preference
	Time string

	// semantic_recall; nil when nothing matched
	Context *RecallMatch
}

// PreferenceReader is the planner's one read against external state.
type PreferenceReader interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
}

// SemanticSearcher finds the past conversation most similar to a query.
// A nil match means nothing relevant was stored.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, query string) (*RecallMatch, error)
}

// Planner applies the confidence gate and the intent-to-action rules.
// It never fails: collaborator errors are logged and treated as absence.
type Planner struct {
	prefs  PreferenceReader
	search SemanticSearcher
}

// New builds a planner over the given collaborators.
func New(prefs PreferenceReader, search SemanticSearcher) *Planner {
	return &Planner{prefs: prefs, search: search}
}

// preferenceKey is the single preference slot scheduling consults.
const preferenceKey = "meeting_time"

// Plan maps a classification to an action. The confidence gate runs
// first and dominates every intent rule.
func (p *Planner) Plan(ctx context.Context, res intent.Result, ext nlp.Extraction, userInput string) Plan {
	timer := logging.StartTimer(logging.CategoryPlanner, "Plan")
	defer timer.Stop()

	if res.Confidence < ConfidenceThreshold {
		return Plan{
			Action: ActionClarify,
			Reasoning: fmt.Sprintf("Confidence level (%.1f%%) is below threshold (%.1f%%). Need clarification.",
				res.Confidence*100, ConfidenceThreshold*100),
		}
	}

	switch res.Intent {
	case intent.SetPreference:
		return Plan{
			Action:    ActionStorePreference,
			Key:       preferenceKey,
			Value:     userInput,
			Reasoning: "User is setting a preference. Storing preference for future use.",
		}

	case intent.ScheduleMeeting:
		return p.planMeeting(ctx)

	case intent.SetReminder:
		return planTask(ext, userInput, "User wants to set a reminder", "with time: ", "for person: ")

	case intent.RetrieveTask:
		return p.planRecall(ctx, userInput)

	case intent.CreateTask:
		return planTask(ext, userInput, "User wants to create a task", "due by ", "assigned to ")

	case intent.Unknown:
	}

	return Plan{
		Action:    ActionUnknown,
		Reasoning: "Intent not recognized. Unable to determine appropriate action.",
	}
}

func (p *Planner) planMeeting(ctx context.Context) Plan {
	pref, ok, err := p.prefs.GetPreference(ctx, preferenceKey)
	if err != nil {
		logging.PlannerWarn("preference lookup failed: %v", err)
		ok = false
	}
	if ok && pref != "" {
		return Plan{
			Action:    ActionScheduleWithPreference,
			Time:      pref,
			Reasoning: fmt.Sprintf("Found stored preference for meeting time: %s. Using preference.", pref),
		}
	}
	return Plan{
		Action:    ActionScheduleDefault,
		Reasoning: "No stored preference found. Using default meeting time.",
	}
}

func (p *Planner) planRecall(ctx context.Context, userInput string) Plan {
	match, err := p.search.SemanticSearch(ctx, userInput)
	if err != nil {
		logging.PlannerWarn("semantic search failed: %v", err)
		match = nil
	}
	if match != nil {
		return Plan{
			Action:  ActionSemanticRecall,
			Context: match,
			Reasoning: fmt.Sprintf("Searching memory for similar past conversations. Found match with relevance score: %.2f",
				match.Score),
		}
	}
	return Plan{
		Action:    ActionSemanticRecall,
		Reasoning: "Searching memory but no relevant past conversations found.",
	}
}

// planTask builds the store_task plan shared by reminders and task
// creation; only the reasoning phrasing differs.
func planTask(ext nlp.Extraction, userInput, lead, timePrefix, personPrefix string) Plan {
	parts := []string{lead}
	if ext.Time != "" {
		parts = append(parts, timePrefix+ext.Time)
	}
	if ext.Person != "" {
		parts = append(parts, personPrefix+ext.Person)
	}

	taskTime := ext.Time
	if taskTime == "" {
		taskTime = NoTimeDetected
	}

	return Plan{
		Action:    ActionStoreTask,
		Task:      userInput,
		Time:      taskTime,
		Person:    ext.Person,
		Reasoning: strings.Join(parts, ". ") + ".",
	}
}
