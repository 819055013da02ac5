package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nixin/internal/logging"
)

const (
	defaultZeroShotEndpoint = "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"
	zeroShotTimeout         = 30 * time.Second
)

// ZeroShotDetector classifies via a remote zero-shot inference endpoint.
// Each intent's hypothesis template is sent as a candidate label and the
// winning label is mapped back to its intent.
type ZeroShotDetector struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewZeroShotDetector builds a detector against the given inference
// endpoint. An empty endpoint selects the public BART-MNLI model; the
// API key is optional (anonymous requests are rate-limited, not refused).
func NewZeroShotDetector(endpoint, apiKey string) *ZeroShotDetector {
	if endpoint == "" {
		endpoint = defaultZeroShotEndpoint
	}
	return &ZeroShotDetector{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: zeroShotTimeout},
	}
}

func (d *ZeroShotDetector) Name() string { return string(BackendZeroShot) }

type zeroShotRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
		MultiLabel      bool     `json:"multi_label"`
	} `json:"parameters"`
}

type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// Detect posts the input with every hypothesis template as a candidate
// label. The endpoint returns labels sorted by score; the first one wins.
func (d *ZeroShotDetector) Detect(ctx context.Context, text string) (Result, error) {
	labelToIntent := make(map[string]Intent, len(hypothesisTemplates))
	var req zeroShotRequest
	req.Inputs = text
	for _, intent := range All() {
		template := hypothesisTemplates[intent]
		req.Parameters.CandidateLabels = append(req.Parameters.CandidateLabels, template)
		labelToIntent[template] = intent
	}

	body, err := json.Marshal(req)
	if err != nil {
		return unknownResult(), fmt.Errorf("zeroshot backend: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return unknownResult(), fmt.Errorf("zeroshot backend: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return unknownResult(), fmt.Errorf("zeroshot backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return unknownResult(), fmt.Errorf("zeroshot backend: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return unknownResult(), fmt.Errorf("zeroshot backend: endpoint returned %d: %s", resp.StatusCode, truncate(payload, 200))
	}

	var out zeroShotResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return unknownResult(), fmt.Errorf("zeroshot backend: decode response: %w", err)
	}
	if len(out.Labels) == 0 || len(out.Scores) == 0 {
		return unknownResult(), fmt.Errorf("zeroshot backend: empty classification for %q", text)
	}

	intent, ok := labelToIntent[out.Labels[0]]
	if !ok {
		logging.IntentWarn("zeroshot backend: unrecognized label %q", out.Labels[0])
		return unknownResult(), nil
	}

	result := Result{Intent: intent, Confidence: clamp01(out.Scores[0])}
	logging.IntentDebug("zeroshot backend: %q -> %s (%.3f)", text, result.Intent, result.Confidence)
	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
