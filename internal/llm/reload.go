package llm

import (
	"context"
	"sync/atomic"
)

// ReloadableClient routes every call to the most recently stored inner
// client. Config reloads swap the inner client atomically, so request
// goroutines never observe a half-copied client; a call already in flight
// finishes on the client it started with.
type ReloadableClient struct {
	inner atomic.Pointer[OpenAIClient]
}

func NewReloadableClient(c *OpenAIClient) *ReloadableClient {
	r := &ReloadableClient{}
	r.inner.Store(c)
	return r
}

// Swap replaces the inner client for all subsequent calls.
func (r *ReloadableClient) Swap(c *OpenAIClient) {
	r.inner.Store(c)
}

func (r *ReloadableClient) Interpret(ctx context.Context, question, userContext string) (string, error) {
	return r.inner.Load().Interpret(ctx, question, userContext)
}

func (r *ReloadableClient) Explain(ctx context.Context, question, dataJSON string) (string, error) {
	return r.inner.Load().Explain(ctx, question, dataJSON)
}

func (r *ReloadableClient) Complete(ctx context.Context, system, user string) (string, error) {
	return r.inner.Load().Complete(ctx, system, user)
}
