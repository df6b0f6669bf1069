package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/llm"
	"github.com/shelfwise/shelfwise/internal/ratelimit"
	"github.com/shelfwise/shelfwise/internal/telemetry"
	"github.com/shelfwise/shelfwise/internal/types"
)

const (
	rateLimitAnswer = "You have reached the maximum number of queries allowed per minute."
	genericAnswer   = "An error occurred while processing your request."
)

// Service runs the assistant query pipeline: rate limit, cache gate, model
// interpretation, dispatch, and answer generation.
type Service struct {
	limiter    *ratelimit.Limiter
	gate       *CacheGate
	parser     *Parser
	dispatcher *Dispatcher
	model      llm.Client
	metrics    *telemetry.Metrics
}

func NewService(limiter *ratelimit.Limiter, gate *CacheGate, parser *Parser, dispatcher *Dispatcher, model llm.Client, metrics *telemetry.Metrics) *Service {
	return &Service{
		limiter:    limiter,
		gate:       gate,
		parser:     parser,
		dispatcher: dispatcher,
		model:      model,
		metrics:    metrics,
	}
}

// Query answers a natural-language question about the caller's library.
// Validation, permission, and rate-limit failures come back as typed
// errors for the transport layer to map; any other failure is logged and
// collapsed into a generic unsuccessful response so internal detail never
// reaches the caller.
//
// The limiter is consulted before the cache, so a cache hit still spends
// quota. A hit that skipped the model is indistinguishable from a fresh
// answer to the caller, and metering on answers rather than model calls
// keeps the quota's meaning stable.
func (s *Service) Query(ctx context.Context, question, principalID string, privileged bool) (*types.QueryResponse, error) {
	start := time.Now()

	if !s.limiter.Admit(ctx, principalID) {
		return nil, apperr.NewRateLimit(rateLimitAnswer)
	}

	resp, hit, err := s.gate.Execute(ctx, principalID, question, func(ctx context.Context) (*types.QueryResponse, error) {
		return s.answer(ctx, question, principalID, privileged)
	})
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		if apperr.IsValidation(err) || apperr.IsPermission(err) {
			s.record("", "rejected", elapsed, false)
			return nil, err
		}
		slog.Error("assistant query failed",
			"principal_id", principalID,
			"error", err,
		)
		s.record("", "error", elapsed, false)
		return &types.QueryResponse{
			Success:      false,
			Answer:       genericAnswer,
			ErrorMessage: "AI processing error",
			Timestamp:    time.Now().UTC(),
		}, nil
	}

	s.record(string(resp.InterpretedQuery), "ok", elapsed, hit)
	slog.Info("assistant query answered",
		"principal_id", principalID,
		"query_type", resp.InterpretedQuery,
		"cache_hit", hit,
		"duration_ms", elapsed,
	)
	return resp, nil
}

// answer runs the uncached pipeline: interpret, parse, dispatch, explain.
func (s *Service) answer(ctx context.Context, question, principalID string, privileged bool) (*types.QueryResponse, error) {
	raw, err := s.model.Interpret(ctx, question, principalContext(principalID, privileged))
	if err != nil {
		return nil, fmt.Errorf("interpret question: %w", err)
	}

	intent, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	result, err := s.dispatcher.Execute(ctx, intent, principalID, privileged)
	if err != nil {
		return nil, err
	}

	dataJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return nil, fmt.Errorf("encode result rows: %w", err)
	}

	answer, err := s.model.Explain(ctx, question, string(dataJSON))
	if err != nil {
		return nil, fmt.Errorf("explain result: %w", err)
	}

	qt, _ := types.ParseQueryType(string(intent.QueryType))
	return &types.QueryResponse{
		Success:          true,
		Answer:           answer,
		InterpretedQuery: qt,
		Data:             result.Rows,
		ChartType:        result.ChartType,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func principalContext(principalID string, privileged bool) string {
	if privileged {
		return "User is an admin and can query all books."
	}
	return fmt.Sprintf("User can only query their own books (UserId: %s).", principalID)
}

func (s *Service) record(queryType, status string, durationMs float64, hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAssistantRequest(queryType, status, durationMs, hit)
}
