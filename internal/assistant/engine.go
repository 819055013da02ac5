// Package assistant ties the pipeline together: extraction,
// classification, planning, and dispatch run strictly in that order
// for each input, and the full trace is returned so callers can render
// the rationale alongside the response.
package assistant

import (
	"context"
	"fmt"

	"nixin/internal/config"
	"nixin/internal/dispatch"
	"nixin/internal/intent"
	"nixin/internal/logging"
	"nixin/internal/memory"
	"nixin/internal/nlp"
	"nixin/internal/planner"
)

// Trace is everything one request produced, stage by stage.
type Trace struct {
	Input      string
	Extraction nlp.Extraction
	Outcome    intent.Outcome
	Plan       planner.Plan
	Response   string
}

// Engine is the per-process pipeline instance.
type Engine struct {
	adapter    *intent.Adapter
	planner    *planner.Planner
	dispatcher *dispatch.Dispatcher
	store      *memory.Store
	opts       intent.Options
}

// New wires an engine from config and an open memory store.
func New(cfg *config.Config, store *memory.Store) (*Engine, error) {
	opts := backendOptions(cfg)

	adapter, err := intent.NewAdapter(intent.Backend(cfg.Intent.Backend), opts)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	return &Engine{
		adapter:    adapter,
		planner:    planner.New(store, searchAdapter{store}),
		dispatcher: dispatch.New(store),
		store:      store,
		opts:       opts,
	}, nil
}

// backendOptions maps config onto the adapter's construction inputs.
func backendOptions(cfg *config.Config) intent.Options {
	return intent.Options{
		Embedding: cfg.Embedding,
		Remote: intent.RemoteConfig{
			APIKey:  cfg.Remote.APIKey,
			BaseURL: cfg.Remote.BaseURL,
			Model:   cfg.Remote.Model,
			Timeout: cfg.GetRemoteTimeout(),
		},
		ZeroShotEndpoint: cfg.Intent.ZeroShotEndpoint,
		ZeroShotAPIKey:   cfg.Intent.ZeroShotAPIKey,
	}
}

// Backend returns the selected classification backend.
func (e *Engine) Backend() intent.Backend { return e.adapter.Backend() }

// Store exposes the memory store for snapshot rendering.
func (e *Engine) Store() *memory.Store { return e.store }

// Process runs one input through the pipeline. The only error it can
// return is intent.ErrCredentialsRequired; every other failure is
// absorbed by the fallback layers, so a trace with a non-empty
// response always comes back otherwise.
func (e *Engine) Process(ctx context.Context, text string) (*Trace, error) {
	trace := &Trace{Input: text}

	trace.Extraction = nlp.Extract(text)

	outcome, err := e.adapter.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	trace.Outcome = outcome
	logging.Intent("classified %q as %s (%.2f) via %s", text, outcome.Intent, outcome.Confidence, outcome.Backend)

	trace.Plan = e.planner.Plan(ctx, outcome.Result, trace.Extraction, text)
	logging.Planner("planned %s: %s", trace.Plan.Action, trace.Plan.Reasoning)

	trace.Response = e.dispatcher.Dispatch(ctx, trace.Plan, text)
	return trace, nil
}

// BackendReport is one row of a backend comparison run.
type BackendReport struct {
	Backend    intent.Backend
	Intent     intent.Intent
	Confidence float64
	FellBack   bool
	Err        error
}

// CompareBackends classifies the same input with every backend and
// reports each result. Backends that need unavailable credentials
// report their error instead of a classification.
func (e *Engine) CompareBackends(ctx context.Context, text string) []BackendReport {
	reports := make([]BackendReport, 0, len(intent.Backends()))
	for _, backend := range intent.Backends() {
		report := BackendReport{Backend: backend}

		adapter, err := intent.NewAdapter(backend, e.opts)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}

		outcome, err := adapter.Classify(ctx, text)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}

		report.Intent = outcome.Intent
		report.Confidence = outcome.Confidence
		report.FellBack = outcome.FellBack
		reports = append(reports, report)
	}
	return reports
}

// searchAdapter narrows the memory store to the planner's view of
// semantic search.
type searchAdapter struct {
	store *memory.Store
}

func (s searchAdapter) SemanticSearch(ctx context.Context, query string) (*planner.RecallMatch, error) {
	match, err := s.store.SemanticSearch(ctx, query)
	if err != nil || match == nil {
		return nil, err
	}
	return &planner.RecallMatch{Match: match.Match, Score: match.Score}, nil
}
