package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nixin/internal/logging"
)

// RemoteConfig holds configuration for the remote LLM backend.
type RemoteConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultRemoteConfig returns sensible defaults.
func DefaultRemoteConfig(apiKey string) RemoteConfig {
	return RemoteConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.anthropic.com/v1",
		Model:   "claude-3-5-sonnet-20241022",
		Timeout: 30 * time.Second,
	}
}

// RemoteDetector classifies via a credentialed messages API, prompting
// the model to answer with a single JSON object. Unparseable payloads
// and labels outside the intent set clamp to Unknown at 0.3.
type RemoteDetector struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewRemoteDetector builds a detector from config. Construction does
// not validate credentials; Detect returns ErrCredentialsRequired when
// the key is missing so the caller can decide how to surface it.
func NewRemoteDetector(config RemoteConfig) *RemoteDetector {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &RemoteDetector{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (d *RemoteDetector) Name() string { return string(BackendRemote) }

type remoteRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []remoteMessage `json:"messages"`
}

type remoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type remoteResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// classification is the JSON shape the model is instructed to emit.
type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Detect prompts the model for a one-object JSON classification.
func (d *RemoteDetector) Detect(ctx context.Context, text string) (Result, error) {
	if d.apiKey == "" {
		return unknownResult(), ErrCredentialsRequired
	}

	reqBody := remoteRequest{
		Model:     d.model,
		MaxTokens: 100,
		Messages: []remoteMessage{
			{Role: "user", Content: classificationPrompt(text)},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return unknownResult(), fmt.Errorf("remote backend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return unknownResult(), fmt.Errorf("remote backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", d.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return unknownResult(), fmt.Errorf("remote backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unknownResult(), fmt.Errorf("remote backend: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return unknownResult(), fmt.Errorf("remote backend: API returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return unknownResult(), fmt.Errorf("remote backend: parse response: %w", err)
	}
	if out.Error != nil {
		return unknownResult(), fmt.Errorf("remote backend: API error: %s", out.Error.Message)
	}
	if len(out.Content) == 0 {
		return unknownResult(), fmt.Errorf("remote backend: empty completion")
	}

	var completion strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			completion.WriteString(c.Text)
		}
	}

	result := parseClassification(completion.String())
	logging.IntentDebug("remote backend: %q -> %s (%.3f)", text, result.Intent, result.Confidence)
	return result, nil
}

// classificationPrompt lists the valid intents and pins the output
// shape to one JSON object.
func classificationPrompt(text string) string {
	labels := make([]string, 0, len(All()))
	for _, intent := range All() {
		labels = append(labels, intent.String())
	}
	intentList := strings.Join(labels, ", ")

	return fmt.Sprintf(`Analyze the user's intent from the following message and classify it into one of these categories: %s

User message: %q

Respond with ONLY a JSON object in this format:
{"intent": "<intent>", "confidence": <0.0-1.0>}

Where confidence is how certain you are (1.0 = very certain, 0.0 = not certain).
Available intents: %s`, intentList, text, intentList)
}

// parseClassification decodes the model's answer, tolerating code
// fences around the JSON object. Anything invalid clamps to Unknown.
func parseClassification(completion string) Result {
	completion = strings.TrimSpace(completion)
	completion = strings.TrimPrefix(completion, "```json")
	completion = strings.TrimPrefix(completion, "```")
	completion = strings.TrimSuffix(completion, "```")
	completion = strings.TrimSpace(completion)

	var c classification
	if err := json.Unmarshal([]byte(completion), &c); err != nil {
		logging.IntentWarn("remote backend: unparseable completion: %v", err)
		return unknownResult()
	}

	intent := Intent(c.Intent)
	if !intent.IsValid() {
		return unknownResult()
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return unknownResult()
	}
	return Result{Intent: intent, Confidence: c.Confidence}
}
