package intent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nixin/internal/embedding"
	"nixin/internal/logging"
)

// Options carries the construction inputs for every non-rule backend.
// Only the fields for the selected backend are consulted.
type Options struct {
	Embedding        embedding.Config
	Remote           RemoteConfig
	ZeroShotEndpoint string
	ZeroShotAPIKey   string
}

// Outcome is a classification plus how it was obtained. FellBack is
// true when the selected backend could not produce a usable result and
// the rule detector answered instead.
type Outcome struct {
	Result
	Backend  string
	FellBack bool
}

// Adapter fronts a selected backend with the rule detector as a safety
// net. The backend is constructed lazily on first use; construction
// failures, detection errors, and low-confidence Unknown results all
// fall back to rules, so Classify never fails for non-credential
// reasons.
type Adapter struct {
	backend Backend
	opts    Options
	rules   *RuleDetector

	mu       sync.Mutex
	detector Detector
}

// NewAdapter selects a backend. The tag is validated here; everything
// else is deferred until the first classification.
func NewAdapter(backend Backend, opts Options) (*Adapter, error) {
	switch backend {
	case BackendRule, BackendEmbedding, BackendZeroShot, BackendRemote:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return &Adapter{backend: backend, opts: opts, rules: NewRuleDetector()}, nil
}

// Backend returns the selected backend tag.
func (a *Adapter) Backend() Backend { return a.backend }

func (a *Adapter) Name() string { return string(a.backend) }

// Detect implements Detector by delegating to Classify and dropping the
// provenance fields.
func (a *Adapter) Detect(ctx context.Context, text string) (Result, error) {
	outcome, err := a.Classify(ctx, text)
	return outcome.Result, err
}

// Classify runs the selected backend and applies the fallback policy:
// rule results pass through untouched; any backend error other than
// missing credentials falls back to rules; an Unknown result below 0.5
// confidence is treated as a disguised failure and also falls back.
// ErrCredentialsRequired is the one error that propagates, so callers
// can prompt for a key instead of silently degrading.
func (a *Adapter) Classify(ctx context.Context, text string) (Outcome, error) {
	if a.backend == BackendRule {
		result, _ := a.rules.Detect(ctx, text)
		return Outcome{Result: result, Backend: a.rules.Name()}, nil
	}

	detector, err := a.lazyDetector()
	if err != nil {
		logging.IntentWarn("backend %s unavailable: %v, falling back to rules", a.backend, err)
		return a.fallback(ctx, text), nil
	}

	result, err := detector.Detect(ctx, text)
	if err != nil {
		if errors.Is(err, ErrCredentialsRequired) {
			return Outcome{Result: unknownResult(), Backend: detector.Name()}, err
		}
		logging.IntentWarn("backend %s failed: %v, falling back to rules", detector.Name(), err)
		return a.fallback(ctx, text), nil
	}

	if result.Intent == Unknown && result.Confidence < 0.5 {
		logging.IntentDebug("backend %s returned low-confidence unknown, falling back to rules", detector.Name())
		return a.fallback(ctx, text), nil
	}

	return Outcome{Result: result, Backend: detector.Name()}, nil
}

func (a *Adapter) fallback(ctx context.Context, text string) Outcome {
	result, _ := a.rules.Detect(ctx, text)
	return Outcome{Result: result, Backend: a.rules.Name(), FellBack: true}
}

// lazyDetector constructs the backend on first use. A failed build is
// not cached: a backend that was unreachable once may come up later.
func (a *Adapter) lazyDetector() (Detector, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector != nil {
		return a.detector, nil
	}

	var (
		detector Detector
		err      error
	)
	switch a.backend {
	case BackendEmbedding:
		var engine embedding.Engine
		engine, err = embedding.NewEngine(a.opts.Embedding)
		if err == nil {
			detector = NewEmbeddingDetector(engine)
		}
	case BackendZeroShot:
		detector = NewZeroShotDetector(a.opts.ZeroShotEndpoint, a.opts.ZeroShotAPIKey)
	case BackendRemote:
		detector = NewRemoteDetector(a.opts.Remote)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, a.backend)
	}
	if err != nil {
		return nil, err
	}

	a.detector = detector
	logging.Intent("backend %s initialized", detector.Name())
	return a.detector, nil
}
