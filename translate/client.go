package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Environment fallbacks for the remote translation service, used when
// the flags and project config leave the values unset.
const (
	EnvAPIURL = "LINGOKIT_API_URL"
	EnvAPIKey = "LINGOKIT_API_KEY"
)

// DefaultModel is the chat model requested when none is configured.
const DefaultModel = "gpt-4o-mini"

// Provider holds the configuration for the remote translation service
// (a chat-completion style HTTP API).
type Provider struct {
	// BaseURL is the API base URL, e.g. https://api.example.com/v1.
	BaseURL string
	// APIKey authenticates requests (Bearer token).
	APIKey string
	// Model is the chat model identifier.
	Model string
	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// FromEnv fills unset BaseURL/APIKey fields from the environment.
func (p Provider) FromEnv() Provider {
	if p.BaseURL == "" {
		p.BaseURL = os.Getenv(EnvAPIURL)
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv(EnvAPIKey)
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	return p
}

// Validate fails fast on missing configuration, before any I/O.
func (p Provider) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("no API URL configured: pass --api-url or set %s", EnvAPIURL)
	}
	if p.APIKey == "" {
		return fmt.Errorf("no API key configured: pass --api-key or set %s", EnvAPIKey)
	}
	return nil
}

func (p Provider) effectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 120 * time.Second
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseEnd = time.Now().Add(duration)
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		wait := remaining
		if wait > 100*time.Millisecond {
			wait = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Chat completion request/response
// ---------------------------------------------------------------------------

func buildChatRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractResponseText pulls the assistant text out of a chat-completion
// response. An empty choices array counts as failure.
func extractResponseText(body []byte) (string, error) {
	var resp struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response: %s", truncate(string(body), 300))
	}
	return resp.Choices[0].Message.Content, nil
}

// parseRetryDelay reads the Retry-After header of a 429 response,
// defaulting to 30s.
func parseRetryDelay(resp *http.Response) time.Duration {
	const defaultDelay = 30 * time.Second
	if resp == nil {
		return defaultDelay
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs)*time.Second + time.Second
		}
	}
	return defaultDelay
}

// callChat sends one chat-completion request with retry on transport
// errors, 5xx, and rate limiting.
func callChat(ctx context.Context, prov Provider, systemPrompt, userPrompt string, rl *rateLimitState, maxRetries int, verbose bool) (string, error) {
	body, err := buildChatRequest(prov.Model, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	endpoint := strings.TrimRight(prov.BaseURL, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	client := &http.Client{Timeout: prov.effectiveTimeout()}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if rl != nil {
			if err := rl.waitIfPaused(ctx); err != nil {
				return "", err
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+prov.APIKey)

		if verbose {
			log.Printf("[DEBUG] attempt %d: POST %s (model: %s)", attempt+1, endpoint, prov.Model)
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay(resp)
			if verbose {
				log.Printf("[WARN] 429 rate limited, waiting %v (attempt %d/%d)", retryDelay, attempt+1, maxRetries)
			}
			if rl != nil {
				rl.pause(retryDelay)
			}
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryDelay):
				}
				if rl != nil {
					rl.unpause()
				}
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries", maxRetries)
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return extractResponseText(respBody)
	}

	return "", fmt.Errorf("exhausted all %d retries", maxRetries)
}

// ---------------------------------------------------------------------------
// Response payload parsing
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslationMap extracts the key→translation object from the
// model's response text. Keys outside the requested set and empty
// values are dropped.
func parseTranslationMap(content string, requested map[string]string) (map[string]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing translation response as JSON object: %w\nResponse: %s", err, truncate(content, 300))
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if _, ok := requested[key]; !ok {
			continue
		}
		if value == "" {
			continue
		}
		out[key] = value
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
