package intent

import (
	"context"
	"fmt"
	"sync"

	"nixin/internal/embedding"
	"nixin/internal/logging"
)

// corpusEntry is one embedded example sentence from intentExamples.
type corpusEntry struct {
	intent Intent
	text   string
	vector []float32
}

// EmbeddingDetector classifies by nearest-neighbor search over the
// embedded intent-example corpus. The corpus is embedded once, lazily,
// on the first Detect call; a failed priming is retried on the next
// call rather than cached forever.
type EmbeddingDetector struct {
	engine embedding.Engine

	mu     sync.Mutex
	corpus []corpusEntry
}

// NewEmbeddingDetector wraps an embedding engine. The engine is not
// contacted until the first Detect call.
func NewEmbeddingDetector(engine embedding.Engine) *EmbeddingDetector {
	return &EmbeddingDetector{engine: engine}
}

func (d *EmbeddingDetector) Name() string {
	return fmt.Sprintf("%s(%s)", BackendEmbedding, d.engine.Name())
}

// Detect embeds the input and returns the intent of the most similar
// corpus example. Matches below the 0.3 floor stay Unknown.
func (d *EmbeddingDetector) Detect(ctx context.Context, text string) (Result, error) {
	corpus, err := d.primedCorpus(ctx)
	if err != nil {
		return unknownResult(), fmt.Errorf("embedding backend: prime corpus: %w", err)
	}

	vec, err := d.engine.Embed(ctx, text)
	if err != nil {
		return unknownResult(), fmt.Errorf("embedding backend: embed input: %w", err)
	}

	vectors := make([][]float32, len(corpus))
	for i, entry := range corpus {
		vectors[i] = entry.vector
	}
	top, err := embedding.FindTopK(vec, vectors, 1)
	if err != nil {
		return unknownResult(), fmt.Errorf("embedding backend: rank corpus: %w", err)
	}

	best := unknownResult()
	if len(top) > 0 && top[0].Similarity > best.Confidence {
		best = Result{Intent: corpus[top[0].Index].intent, Confidence: top[0].Similarity}
	}

	logging.IntentDebug("embedding backend: %q -> %s (%.3f)", text, best.Intent, best.Confidence)
	return best, nil
}

// primedCorpus returns the embedded corpus, building it on first use.
// One batch call per intent keeps priming cheap for HTTP engines.
func (d *EmbeddingDetector) primedCorpus(ctx context.Context) ([]corpusEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.corpus != nil {
		return d.corpus, nil
	}

	var corpus []corpusEntry
	for _, intent := range All() {
		examples := intentExamples[intent]
		if len(examples) == 0 {
			continue
		}
		vectors, err := d.engine.EmbedBatch(ctx, examples)
		if err != nil {
			return nil, fmt.Errorf("embed examples for %s: %w", intent, err)
		}
		if len(vectors) != len(examples) {
			return nil, fmt.Errorf("embed examples for %s: got %d vectors for %d texts", intent, len(vectors), len(examples))
		}
		for i, text := range examples {
			corpus = append(corpus, corpusEntry{intent: intent, text: text, vector: vectors[i]})
		}
	}

	d.corpus = corpus
	logging.Intent("embedding backend primed: %d corpus entries via %s", len(corpus), d.engine.Name())
	return d.corpus, nil
}
