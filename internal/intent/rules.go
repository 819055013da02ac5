package intent

import (
	"context"
	"strings"
)

// RuleDetector is the deterministic keyword classifier. It is pure and
// total: no I/O, no state, and it never returns an error, so it doubles
// as the fallback for every other backend.
type RuleDetector struct{}

// NewRuleDetector returns the shared rule classifier.
func NewRuleDetector() *RuleDetector { return &RuleDetector{} }

func (d *RuleDetector) Name() string { return string(BackendRule) }

// retrievalPhrases are checked before everything else so that memory
// recall questions ("what did I say about the meeting") never match the
// scheduling or task tiers.
var retrievalPhrases = []string{
	"what have i", "what did", "did i mention", "do you remember",
	"what have you told", "tell me about",
}

var retrievalRecallWords = []string{"told", "said", "mentioned", "earlier"}

var reminderWords = []string{"remind", "reminder", "alert"}

var meetingWords = []string{"schedule", "meeting", "appoint"}

var taskVerbs = []string{
	"submit", "attend", "complete", "finish",
	"send", "call", "pay", "buy", "prepare",
	"visit", "meet",
}

// Detect classifies text by priority-ordered keyword tiers. The first
// matching tier wins; ordering matters because the tiers overlap
// ("what about the meeting" must retrieve, not schedule).
func (d *RuleDetector) Detect(_ context.Context, text string) (Result, error) {
	return d.classify(text), nil
}

func (d *RuleDetector) classify(text string) Result {
	text = strings.ToLower(text)

	if containsAny(text, retrievalPhrases) {
		return Result{Intent: RetrieveTask, Confidence: 0.8}
	}
	if strings.HasPrefix(text, "what") && containsAny(text, retrievalRecallWords) {
		return Result{Intent: RetrieveTask, Confidence: 0.8}
	}

	// "I prefer you to remember X" is recall phrasing, not a preference.
	if strings.Contains(text, "prefer") && !strings.Contains(text, "remember") {
		return Result{Intent: SetPreference, Confidence: 0.9}
	}

	if containsAny(text, reminderWords) {
		return Result{Intent: SetReminder, Confidence: 0.9}
	}

	if containsAny(text, meetingWords) {
		if !strings.Contains(text, "did i mention") && !strings.Contains(text, "what") {
			return Result{Intent: ScheduleMeeting, Confidence: 0.9}
		}
	}

	if containsAny(text, taskVerbs) {
		return Result{Intent: CreateTask, Confidence: 0.85}
	}

	return unknownResult()
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
