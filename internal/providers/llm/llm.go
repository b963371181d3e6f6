package llm

import "context"

// Provider is a hosted chat model. Complete sends one system instruction and
// one user message and returns the model's raw text answer.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
	Close() error
}
