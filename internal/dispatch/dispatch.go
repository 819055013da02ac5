// Package dispatch executes an ActionPlan against the memory store and
// renders the user-facing response. It is deliberately thin: every
// decision was already made by the planner.
package dispatch

import (
	"context"
	"fmt"

	"nixin/internal/logging"
	"nixin/internal/planner"
)

// Memory is the mutable external state the dispatcher writes to.
type Memory interface {
	StorePreference(ctx context.Context, key, value string) error
	AddTask(ctx context.Context, task, taskTime string) error
	AddConversation(ctx context.Context, text string) error
}

// Dispatcher turns plans into responses and side effects.
type Dispatcher struct {
	memory Memory
}

// New builds a dispatcher over the given memory store.
func New(memory Memory) *Dispatcher {
	return &Dispatcher{memory: memory}
}

// noTimeSpecified is the legacy sentinel alongside planner.NoTimeDetected;
// both mean "do not echo a time in the response".
const noTimeSpecified = "No time specified"

// Dispatch executes the plan and returns the response string. Every
// input is appended to the conversation log first, matched or not, so
// semantic recall can find it later. Store failures are logged, never
// surfaced: the response contract is unconditional.
func (d *Dispatcher) Dispatch(ctx context.Context, plan planner.Plan, userInput string) string {
	timer := logging.StartTimer(logging.CategoryDispatch, "Dispatch")
	defer timer.Stop()

	if err := d.memory.AddConversation(ctx, userInput); err != nil {
		logging.StoreWarn("conversation append failed: %v", err)
	}

	switch plan.Action {
	case planner.ActionStorePreference:
		if err := d.memory.StorePreference(ctx, plan.Key, plan.Value); err != nil {
			logging.StoreWarn("preference write failed: %v", err)
		}
		key := plan.Key
		if key == "" {
			key = "unknown"
		}
		return fmt.Sprintf("Preference saved successfully: %s", key)

	case planner.ActionScheduleWithPreference:
		t := plan.Time
		if t == "" {
			t = "default time"
		}
		return fmt.Sprintf("Meeting scheduled based on your preference: %s", t)

	case planner.ActionScheduleDefault:
		return "Meeting scheduled at default time"

	case planner.ActionStoreTask:
		return d.storeTask(ctx, plan, userInput)

	case planner.ActionSemanticRecall:
		if plan.Context != nil {
			return fmt.Sprintf("I remember you mentioned: %s (Relevance: %.2f)", plan.Context.Match, plan.Context.Score)
		}
		return "No relevant memory found for your query"

	case planner.ActionClarify:
		return "Could you please clarify your request? I want to make sure I understand correctly."

	case planner.ActionUnknown:
		return "I didn't understand that request. Could you rephrase it?"
	}

	logging.Dispatch("unrecognized action %q", plan.Action)
	return fmt.Sprintf("Action '%s' executed successfully", plan.Action)
}

func (d *Dispatcher) storeTask(ctx context.Context, plan planner.Plan, userInput string) string {
	task := plan.Task
	if task == "" {
		task = userInput
	}
	taskTime := plan.Time
	if taskTime == "" {
		taskTime = noTimeSpecified
	}

	if err := d.memory.AddTask(ctx, task, taskTime); err != nil {
		logging.StoreWarn("task write failed: %v", err)
	}

	response := "Task saved"
	if taskTime != planner.NoTimeDetected && taskTime != noTimeSpecified {
		response += fmt.Sprintf(" for %s", taskTime)
	}
	if plan.Person != "" {
		response += fmt.Sprintf(" with %s", plan.Person)
	}
	return response + "."
}
