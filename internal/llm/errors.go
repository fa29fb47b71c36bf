package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
)

// Kind classifies a provider error for retry and messaging decisions.
type Kind int

const (
	// KindTransient covers rate limits, timeouts and other network or
	// server-side trouble. Retried during ingestion; surfaced as a
	// "try again" during query.
	KindTransient Kind = iota

	// KindFatal covers bad credentials and malformed requests. Never
	// retried.
	KindFatal
)

// Classify maps a provider error to its retry class. Anything that is not
// recognizably a client-side provider rejection is treated as transient.
func Classify(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return KindTransient
		}
		return KindFatal
	}

	// No HTTP status at all: connection refused, DNS, TLS.
	return KindTransient
}
