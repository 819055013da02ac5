package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"nixin/internal/intent"
	"nixin/internal/nlp"
)

type fakePrefs struct {
	values map[string]string
	err    error
}

func (f *fakePrefs) GetPreference(_ context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

type fakeSearch struct {
	match *RecallMatch
	err   error
}

func (f *fakeSearch) SemanticSearch(context.Context, string) (*RecallMatch, error) {
	return f.match, f.err
}

func newPlanner(prefs *fakePrefs, search *fakeSearch) *Planner {
	if prefs == nil {
		prefs = &fakePrefs{}
	}
	if search == nil {
		search = &fakeSearch{}
	}
	return New(prefs, search)
}

func TestPlan_ConfidenceGate(t *testing.T) {
	p := newPlanner(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		confidence float64
		wantAction Action
	}{
		{"well below threshold", 0.3, ActionClarify},
		{"just below threshold", 0.7499, ActionClarify},
		{"exactly at threshold passes", 0.75, ActionStoreTask},
		{"above threshold", 0.9, ActionStoreTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := intent.Result{Intent: intent.SetReminder, Confidence: tt.confidence}
			got := p.Plan(ctx, res, nlp.Extraction{}, "remind me")
			assert.Equal(t, tt.wantAction, got.Action)
			assert.NotEmpty(t, got.Reasoning)
		})
	}
}

func TestPlan_ClarifyReasoningNamesTheConfidence(t *testing.T) {
	p := newPlanner(nil, nil)
	res := intent.Result{Intent: intent.Unknown, Confidence: 0.3}

	got := p.Plan(context.Background(), res, nlp.Extraction{}, "hello there")
	assert.Equal(t, ActionClarify, got.Action)
	assert.Equal(t, "Confidence level (30.0%) is below threshold (75.0%). Need clarification.", got.Reasoning)
}

func TestPlan_SetPreference(t *testing.T) {
	p := newPlanner(nil, nil)
	res := intent.Result{Intent: intent.SetPreference, Confidence: 0.9}

	got := p.Plan(context.Background(), res, nlp.Extraction{}, "I prefer morning meetings")
	assert.Equal(t, ActionStorePreference, got.Action)
	assert.Equal(t, "meeting_time", got.Key)
	assert.Equal(t, "I prefer morning meetings", got.Value)
	assert.Equal(t, "User is setting a preference. Storing preference for future use.", got.Reasoning)
}

func TestPlan_ScheduleMeeting(t *testing.T) {
	ctx := context.Background()
	res := intent.Result{Intent: intent.ScheduleMeeting, Confidence: 0.9}

	t.Run("with stored preference", func(t *testing.T) {
		prefs := &fakePrefs{values: map[string]string{"meeting_time": "I prefer morning meetings"}}
		got := newPlanner(prefs, nil).Plan(ctx, res, nlp.Extraction{}, "schedule a meeting")
		assert.Equal(t, ActionScheduleWithPreference, got.Action)
		assert.Equal(t, "I prefer morning meetings", got.Time)
		assert.Equal(t, "Found stored preference for meeting time: I prefer morning meetings. Using preference.", got.Reasoning)
	})

	t.Run("without stored preference", func(t *testing.T) {
		got := newPlanner(nil, nil).Plan(ctx, res, nlp.Extraction{}, "schedule a meeting")
		assert.Equal(t, ActionScheduleDefault, got.Action)
		assert.Equal(t, "No stored preference found. Using default meeting time.", got.Reasoning)
	})

	t.Run("preference store error degrades to default", func(t *testing.T) {
		prefs := &fakePrefs{err: errors.New("db locked")}
		got := newPlanner(prefs, nil).Plan(ctx, res, nlp.Extraction{}, "schedule a meeting")
		assert.Equal(t, ActionScheduleDefault, got.Action)
	})
}

func TestPlan_SetReminder(t *testing.T) {
	p := newPlanner(nil, nil)
	ctx := context.Background()
	res := intent.Result{Intent: intent.SetReminder, Confidence: 0.9}

	t.Run("with time and person", func(t *testing.T) {
		ext := nlp.Extraction{Time: "20 feb 2026", Person: "kavita mam"}
		got := p.Plan(ctx, res, ext, "remind me to submit the report to kavita mam on 20 feb 2026")
		assert.Equal(t, ActionStoreTask, got.Action)
		assert.Equal(t, "20 feb 2026", got.Time)
		assert.Equal(t, "kavita mam", got.Person)
		assert.Equal(t, "User wants to set a reminder. with time: 20 feb 2026. for person: kavita mam.", got.Reasoning)
	})

	t.Run("without time uses sentinel", func(t *testing.T) {
		got := p.Plan(ctx, res, nlp.Extraction{}, "remind me about the thing")
		assert.Equal(t, ActionStoreTask, got.Action)
		assert.Equal(t, NoTimeDetected, got.Time)
		assert.Equal(t, "User wants to set a reminder.", got.Reasoning)
	})
}

func TestPlan_CreateTask(t *testing.T) {
	p := newPlanner(nil, nil)
	res := intent.Result{Intent: intent.CreateTask, Confidence: 0.85}
	ext := nlp.Extraction{Time: "friday", Person: "alice"}

	got := p.Plan(context.Background(), res, ext, "send the draft to alice by friday")
	assert.Equal(t, ActionStoreTask, got.Action)
	assert.Equal(t, "send the draft to alice by friday", got.Task)
	assert.Equal(t, "User wants to create a task. due by friday. assigned to alice.", got.Reasoning)
}

func TestPlan_RetrieveTask(t *testing.T) {
	ctx := context.Background()
	res := intent.Result{Intent: intent.RetrieveTask, Confidence: 0.8}

	t.Run("with match", func(t *testing.T) {
		search := &fakeSearch{match: &RecallMatch{Match: "I prefer morning meetings", Score: 0.8123}}
		got := newPlanner(nil, search).Plan(ctx, res, nlp.Extraction{}, "what did I say about meetings")
		assert.Equal(t, ActionSemanticRecall, got.Action)
		assert.Equal(t, search.match, got.Context)
		assert.Equal(t, "Searching memory for similar past conversations. Found match with relevance score: 0.81", got.Reasoning)
	})

	t.Run("without match", func(t *testing.T) {
		got := newPlanner(nil, nil).Plan(ctx, res, nlp.Extraction{}, "what did I say about meetings")
		assert.Equal(t, ActionSemanticRecall, got.Action)
		assert.Nil(t, got.Context)
		assert.Equal(t, "Searching memory but no relevant past conversations found.", got.Reasoning)
	})

	t.Run("search error degrades to no match", func(t *testing.T) {
		search := &fakeSearch{err: errors.New("store offline")}
		got := newPlanner(nil, search).Plan(ctx, res, nlp.Extraction{}, "what did I say")
		assert.Equal(t, ActionSemanticRecall, got.Action)
		assert.Nil(t, got.Context)
	})
}

func TestPlan_UnknownIntentAboveThreshold(t *testing.T) {
	p := newPlanner(nil, nil)
	res := intent.Result{Intent: intent.Unknown, Confidence: 0.85}

	got := p.Plan(context.Background(), res, nlp.Extraction{}, "gibberish")
	assert.Equal(t, ActionUnknown, got.Action)
	assert.Equal(t, "Intent not recognized. Unable to determine appropriate action.", got.Reasoning)
}

func TestPlan_ReasoningAlwaysNonEmpty(t *testing.T) {
	p := newPlanner(nil, nil)
	ctx := context.Background()

	for _, in := range intent.All() {
		for _, conf := range []float64{0.0, 0.3, 0.75, 1.0} {
			got := p.Plan(ctx, intent.Result{Intent: in, Confidence: conf}, nlp.Extraction{}, "anything")
			assert.NotEmpty(t, got.Reasoning, "intent=%s confidence=%v", in, conf)
		}
	}
}
