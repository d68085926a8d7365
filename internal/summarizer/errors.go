package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// TransportError covers network failures and non-2xx responses from the LLM backend.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("llm transport: status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("llm transport: status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("llm transport: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable is true for 5xx, 429 and network errors other than caller cancellation.
func (e *TransportError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// MalformedResponseError means the backend answered 2xx without choices[0].message.content.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm response malformed: %s: %v", e.Reason, e.Err)
	}
	return "llm response malformed: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
