// Package intent classifies free-form user text into a closed set of
// assistant intents. Several detection backends implement the same
// Detector contract; the Adapter in this package wraps them with lazy
// construction and a rule-based fallback so callers always get a valid
// classification.
package intent

import (
	"context"
	"errors"
)

// Intent is one of the closed set of assistant intents.
type Intent string

const (
	SetPreference   Intent = "set_preference"
	SetReminder     Intent = "set_reminder"
	ScheduleMeeting Intent = "schedule_meeting"
	RetrieveTask    Intent = "retrieve_task"
	CreateTask      Intent = "create_task"
	Unknown         Intent = "unknown"
)

// All lists every intent, Unknown last.
func All() []Intent {
	return []Intent{SetPreference, SetReminder, ScheduleMeeting, RetrieveTask, CreateTask, Unknown}
}

// IsValid reports whether i is a member of the closed intent set.
func (i Intent) IsValid() bool {
	switch i {
	case SetPreference, SetReminder, ScheduleMeeting, RetrieveTask, CreateTask, Unknown:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }

// Result is a backend classification. Confidence is always in [0, 1];
// any internal failure yields Unknown at 0.3.
type Result struct {
	Intent     Intent
	Confidence float64
}

// unknownResult is the universal degraded classification.
func unknownResult() Result {
	return Result{Intent: Unknown, Confidence: 0.3}
}

// Detector classifies text into an intent with a confidence score.
// Implementations must be safe for concurrent use.
type Detector interface {
	// Detect never returns an invalid intent alongside a nil error.
	Detect(ctx context.Context, text string) (Result, error)

	// Name identifies the backend for logs and comparison output.
	Name() string
}

// Backend is the closed tag identifying a detector implementation.
type Backend string

const (
	BackendRule      Backend = "rule"
	BackendEmbedding Backend = "embedding"
	BackendZeroShot  Backend = "zeroshot"
	BackendRemote    Backend = "remote"
)

// Backends lists every backend tag in presentation order.
func Backends() []Backend {
	return []Backend{BackendRule, BackendEmbedding, BackendZeroShot, BackendRemote}
}

// ErrCredentialsRequired is returned when the remote backend is
// selected without an API key. Callers check it with errors.Is and
// prompt for credentials instead of silently degrading.
var ErrCredentialsRequired = errors.New("intent: remote backend requires an API key")

// ErrUnknownBackend is returned for a backend tag outside the closed set.
var ErrUnknownBackend = errors.New("intent: unknown backend")
