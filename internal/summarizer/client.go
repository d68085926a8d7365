package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"call-insights-go/internal/logger"
)

const promptTemplate = `Summarize this customer service call in 1–2 sentences.
Transcript: %s
Strictly return only the summary and nothing else`

// MockSummary is returned when mock mode is on.
const MockSummary = "MOCK SUMMARY: The customer called about an order and the agent followed up."

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// MaxRetries is the number of extra attempts on transport failures. 0 means one attempt.
	MaxRetries int
	Mock       bool
}

// Client summarizes transcripts over an OpenAI-compatible chat-completions endpoint.
type Client struct {
	opts  Options
	http  *http.Client
	log   *logger.Logger
	newBO func() backoff.BackOff
}

func New(opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
		log:  log.Component("summarizer"),
	}
	c.newBO = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 4 * opts.Timeout
		return bo
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// completionResponse keeps pointers so missing fields can be told apart from empty ones.
type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// BuildPrompt embeds the transcript verbatim in the fixed instruction.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}

// Summarize returns a 1-2 sentence summary of the transcript.
// Failures are *TransportError or *MalformedResponseError.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	if c.opts.Mock {
		c.log.Info("mock LLM mode ON - returning deterministic summary")
		return MockSummary, nil
	}

	data, err := json.Marshal(completionRequest{
		Model:       c.opts.Model,
		Messages:    []message{{Role: "user", Content: BuildPrompt(transcript)}},
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var summary string
	attempt := 0
	op := func() error {
		attempt++
		body, err := c.post(ctx, data)
		if err != nil {
			var te *TransportError
			if errors.As(err, &te) && te.Retryable() {
				c.log.WithError(err).WithField("attempt", attempt).Warn("llm request failed")
				return err
			}
			return backoff.Permanent(err)
		}
		summary, err = parseCompletion(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBO(), uint64(c.opts.MaxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		var te *TransportError
		var me *MalformedResponseError
		if !errors.As(err, &te) && !errors.As(err, &me) {
			// context expiry surfaces from backoff unwrapped
			err = &TransportError{Err: err}
		}
		return "", err
	}

	c.log.WithField("summary_len", len(summary)).WithField("attempts", attempt).Debug("summary received")
	return summary, nil
}

func (c *Client) post(ctx context.Context, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

// parseCompletion reads choices[0].message.content and trims it.
func parseCompletion(body []byte) (string, error) {
	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &MalformedResponseError{Reason: "invalid json", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "no choices"}
	}
	msg := parsed.Choices[0].Message
	if msg == nil {
		return "", &MalformedResponseError{Reason: "choices[0] has no message"}
	}
	if msg.Content == nil {
		return "", &MalformedResponseError{Reason: "choices[0].message has no content"}
	}
	return strings.TrimSpace(*msg.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
