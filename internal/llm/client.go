// Package llm talks to the hosted language model. Interpret turns a
// free-form question into raw text expected to decode into a query intent,
// Explain turns already-computed rows into prose, and Complete runs a raw
// prompt pair. The model is an external collaborator; everything here is
// transport.
package llm

import "context"

// Client is the seam between the assistant pipeline and the hosted model.
type Client interface {
	// Interpret asks the model to translate a user question into a
	// structured intent. userContext tells the model whether the caller is
	// privileged. The returned text may be code-fenced.
	Interpret(ctx context.Context, question, userContext string) (string, error)

	// Explain asks the model for a natural-language answer referencing the
	// already-computed result rows, passed as JSON.
	Explain(ctx context.Context, question, dataJSON string) (string, error)

	// Complete runs a raw system/user prompt pair for callers that build
	// their own prompts, such as the recommendation engine.
	Complete(ctx context.Context, system, user string) (string, error)
}
