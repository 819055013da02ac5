package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nixin/internal/config"
	"nixin/internal/intent"
	"nixin/internal/memory"
	"nixin/internal/planner"
)

func newTestEngine(t *testing.T, backend string) *Engine {
	t.Helper()

	store, err := memory.Open(filepath.Join(t.TempDir(), "nixin.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.Intent.Backend = backend

	e, err := New(cfg, store)
	require.NoError(t, err)
	return e
}

func TestNew_RejectsInvalidBackend(t *testing.T) {
	store, err := memory.Open(filepath.Join(t.TempDir(), "nixin.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	cfg := config.DefaultConfig()
	cfg.Intent.Backend = "psychic"

	_, err = New(cfg, store)
	require.ErrorIs(t, err, intent.ErrUnknownBackend)
}

func TestProcess_ReminderEndToEnd(t *testing.T) {
	e := newTestEngine(t, "rule")

	trace, err := e.Process(context.Background(), "remind me to pay electricity bill on 20 feb 2026 at 7 pm")
	require.NoError(t, err)

	assert.Equal(t, intent.SetReminder, trace.Outcome.Intent)
	assert.Equal(t, 0.9, trace.Outcome.Confidence)
	assert.Equal(t, "20 feb 2026", trace.Extraction.Time)
	assert.Equal(t, planner.ActionStoreTask, trace.Plan.Action)
	assert.Contains(t, trace.Response, "Task saved for 20 feb 2026")
	assert.NotEmpty(t, trace.Plan.Reasoning)
}

func TestProcess_LowConfidenceClarifies(t *testing.T) {
	e := newTestEngine(t, "rule")

	trace, err := e.Process(context.Background(), "hello there")
	require.NoError(t, err)

	assert.Equal(t, intent.Unknown, trace.Outcome.Intent)
	assert.Equal(t, planner.ActionClarify, trace.Plan.Action)
	assert.Equal(t, "Could you please clarify your request? I want to make sure I understand correctly.", trace.Response)
}

func TestProcess_PreferenceThenMeetingUsesIt(t *testing.T) {
	e := newTestEngine(t, "rule")
	ctx := context.Background()

	first, err := e.Process(ctx, "I prefer morning meetings")
	require.NoError(t, err)
	assert.Equal(t, planner.ActionStorePreference, first.Plan.Action)
	assert.Equal(t, "Preference saved successfully: meeting_time", first.Response)

	second, err := e.Process(ctx, "schedule a meeting with the team")
	require.NoError(t, err)
	assert.Equal(t, planner.ActionScheduleWithPreference, second.Plan.Action)
	assert.Equal(t, "Meeting scheduled based on your preference: I prefer morning meetings", second.Response)
}

func TestProcess_RecallFindsPastConversation(t *testing.T) {
	e := newTestEngine(t, "rule")
	ctx := context.Background()

	_, err := e.Process(ctx, "remind me to pay the electricity bill")
	require.NoError(t, err)

	trace, err := e.Process(ctx, "what did I say about the electricity bill")
	require.NoError(t, err)
	assert.Equal(t, planner.ActionSemanticRecall, trace.Plan.Action)
	require.NotNil(t, trace.Plan.Context)
	assert.Equal(t, "remind me to pay the electricity bill", trace.Plan.Context.Match)
	assert.Contains(t, trace.Response, "I remember you mentioned: remind me to pay the electricity bill")
}

func TestProcess_RecallWithEmptyMemory(t *testing.T) {
	e := newTestEngine(t, "rule")

	trace, err := e.Process(context.Background(), "what did I say about the project")
	require.NoError(t, err)
	assert.Equal(t, planner.ActionSemanticRecall, trace.Plan.Action)
	assert.Nil(t, trace.Plan.Context)
	assert.Equal(t, "No relevant memory found for your query", trace.Response)
}

func TestProcess_RemoteWithoutCredentials(t *testing.T) {
	// DefaultConfig carries no API key, so the remote backend must
	// surface the credential error instead of silently falling back.
	e := newTestEngine(t, "remote")

	_, err := e.Process(context.Background(), "remind me about the standup")
	require.Error(t, err)
	assert.True(t, errors.Is(err, intent.ErrCredentialsRequired))
}

func TestCompareBackends_AlwaysIncludesRule(t *testing.T) {
	// Stand in for every remote dependency so the comparison never
	// leaves the process.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store, err := memory.Open(filepath.Join(t.TempDir(), "nixin.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	cfg := config.DefaultConfig()
	cfg.Intent.ZeroShotEndpoint = srv.URL
	cfg.Embedding.OllamaEndpoint = srv.URL

	e, err := New(cfg, store)
	require.NoError(t, err)

	reports := e.CompareBackends(context.Background(), "remind me about the standup")
	require.Len(t, reports, len(intent.Backends()))

	assert.Equal(t, intent.BackendRule, reports[0].Backend)
	require.NoError(t, reports[0].Err)
	assert.Equal(t, intent.SetReminder, reports[0].Intent)
	assert.Equal(t, 0.9, reports[0].Confidence)

	// Unreachable alternates report the rule result via fallback; the
	// remote backend surfaces its missing credentials instead.
	for _, report := range reports[1:] {
		if report.Backend == intent.BackendRemote {
			assert.ErrorIs(t, report.Err, intent.ErrCredentialsRequired)
			continue
		}
		require.NoError(t, report.Err)
		assert.True(t, report.FellBack, "backend %s", report.Backend)
		assert.Equal(t, intent.SetReminder, report.Intent)
		assert.Equal(t, 0.9, report.Confidence)
	}
}
