// Package engine orchestrates masking decisions: it gathers history, scores
// the request, selects a level, applies the strategy, and records the
// outcome. Each request runs the fixed sequence RECEIVED, SCORED,
// LEVEL_SELECTED, MASKED, AUDITED, COMPLETE, or drops to FAILED; no state is
// revisited and the decision itself is never retried here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/engine/metrics"
	"veil/internal/history"
	"veil/internal/masking"
	"veil/internal/policy"
	"veil/internal/scoring"
)

// DefaultWindow is the trailing window over which frequency and violation
// statistics are computed.
const DefaultWindow = 24 * time.Hour

// Request is one masking request: who is asking, why, and for what value.
type Request struct {
	Requester domain.Requester
	Context   domain.AccessContext
	Attribute domain.Attribute
}

// Service is the decision orchestrator. It owns no persistent state beyond
// references to its stores; every decision is self-contained apart from its
// read of history.
type Service struct {
	model     *scoring.Model
	params    scoring.FactorParams
	policyCfg policy.Config
	overrides policy.OverrideStore
	registry  *masking.Registry
	decrypter *masking.Decrypter
	history   history.Store
	publisher *audit.Publisher
	window    time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithWindow(window time.Duration) ServiceOption {
	return func(s *Service) { s.window = window }
}

func WithDecrypter(d *masking.Decrypter) ServiceOption {
	return func(s *Service) { s.decrypter = d }
}

func NewService(
	model *scoring.Model,
	params scoring.FactorParams,
	policyCfg policy.Config,
	overrides policy.OverrideStore,
	registry *masking.Registry,
	historyStore history.Store,
	publisher *audit.Publisher,
	opts ...ServiceOption,
) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("scoring model is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("masking registry is required")
	}
	if historyStore == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher is required")
	}

	s := &Service{
		model:     model,
		params:    params,
		policyCfg: policyCfg,
		overrides: overrides,
		registry:  registry,
		history:   historyStore,
		publisher: publisher,
		window:    DefaultWindow,
		tracer:    otel.Tracer("veil/engine"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Decide runs one masking decision to a terminal outcome. Exactly one
// history record is appended per call, failures included; the audit write
// completes even if the caller has already abandoned the request.
//
// HistoryUnavailable is not an error to the caller: the engine fails closed
// to a Level-4 suppression decision and records why. Contract violations
// (unknown role, type mismatch, score out of range) return a typed error and
// no value beyond the audit trail.
func (s *Service) Decide(ctx context.Context, req Request) (*domain.Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "engine.Decide", trace.WithAttributes(
		attribute.String("entity_type", string(req.Attribute.EntityType)),
		attribute.String("role", string(req.Requester.Role)),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveDecideLatency(time.Since(start))
	}()

	decision := &domain.Decision{
		ID:          uuid.NewString(),
		RequesterID: req.Requester.ID,
		Role:        req.Requester.Role,
		EntityType:  req.Attribute.EntityType,
		Sensitivity: req.Attribute.Sensitivity,
		Purpose:     req.Context.Purpose,
		Timestamp:   time.Now(),
	}

	// An undeclared purpose is a trust-lowering signal carried into the
	// record, not a rejection.
	if _, err := domain.ParsePurpose(string(req.Context.Purpose)); err != nil {
		decision.Violation = true
	}
	if !s.policyCfg.PurposeAllowed(req.Attribute.EntityType, req.Context.Purpose) {
		decision.Violation = true
	}

	if _, err := domain.ParseRole(string(req.Requester.Role)); err != nil {
		decision.Level = domain.LevelSuppress
		decision.Status = domain.StatusUnknownRole
		decision.Violation = true
		if auditErr := s.finalize(ctx, decision); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	// Gather history statistics and any explicit override in parallel.
	var stats history.Stats
	var override policy.Override
	var overrideFound bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queryStart := time.Now()
		var err error
		stats, err = s.history.QueryWindow(gctx, req.Requester.ID, req.Attribute.EntityType, s.window)
		s.metrics.ObserveHistoryLatency(time.Since(queryStart))
		return err
	})
	if s.overrides != nil {
		g.Go(func() error {
			var err error
			override, overrideFound, err = s.overrides.Lookup(gctx, req.Attribute.EntityType, req.Requester.Role)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		// Reading history failed: fail closed to maximum protection rather
		// than guessing a score, and record the reason.
		s.logError(ctx, "history unavailable, suppressing", req, err)
		decision.Level = domain.LevelSuppress
		decision.Strategy = masking.StrategySuppress.String()
		decision.Masked = masking.Suppress(req.Attribute)
		decision.Status = domain.StatusHistoryUnavailable
		if auditErr := s.finalize(ctx, decision); auditErr != nil {
			return nil, auditErr
		}
		return decision, nil
	}

	// SCORED.
	factors := scoring.ComputeFactors(req.Requester, req.Context, req.Attribute, stats, s.policyCfg, s.params)
	decision.Score = s.model.Score(factors)

	// LEVEL_SELECTED.
	level, err := scoring.SelectLevel(decision.Score)
	if err != nil {
		s.logError(ctx, "score out of range", req, err)
		decision.Level = domain.LevelSuppress
		decision.Status = domain.StatusScoreOutOfRange
		if auditErr := s.finalize(ctx, decision); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}
	if overrideFound {
		level = override.Level
	}
	decision.Level = level
	span.SetAttributes(attribute.Int("level", int(level)))

	// MASKED.
	strategy := masking.ForLevel(level)
	decision.Strategy = strategy.String()
	masked, err := s.registry.Apply(strategy, req.Attribute)
	if err != nil {
		var mismatch *domain.TypeMismatchError
		if errors.As(err, &mismatch) {
			// No automatic fallback to a weaker level: the request fails
			// closed and the attempt is recorded as a violation.
			decision.Level = domain.LevelSuppress
			decision.Status = domain.StatusTypeMismatch
			decision.Violation = true
			if auditErr := s.finalize(ctx, decision); auditErr != nil {
				return nil, auditErr
			}
			return nil, err
		}
		return nil, fmt.Errorf("apply strategy %s: %w", strategy, err)
	}
	decision.Masked = masked
	decision.Status = domain.StatusCompleted

	// AUDITED, then COMPLETE.
	if err := s.finalize(ctx, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// finalize appends the history record and emits the audit event. It runs on
// a detached context: an abandoned request still happened and must leave a
// trail. A failed history append fails the whole decision, since an
// unrecorded release would break the append-only guarantee.
func (s *Service) finalize(ctx context.Context, decision *domain.Decision) error {
	ctx = context.WithoutCancel(ctx)

	record := history.Record{
		ID:          decision.ID,
		RequesterID: decision.RequesterID,
		EntityType:  decision.EntityType,
		Level:       decision.Level,
		Strategy:    decision.Strategy,
		Score:       decision.Score,
		Status:      decision.Status,
		Violation:   decision.Violation,
		CreatedAt:   decision.Timestamp,
	}
	if err := s.history.Append(ctx, record); err != nil {
		s.metrics.IncrementOutcome(decision.Level.String(), "append_failed")
		return fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}

	event := audit.Event{
		ID:          decision.ID,
		Timestamp:   decision.Timestamp,
		Action:      audit.ActionDecision,
		RequesterID: decision.RequesterID,
		Role:        decision.Role,
		EntityType:  decision.EntityType,
		Sensitivity: decision.Sensitivity,
		Purpose:     decision.Purpose,
		Level:       decision.Level,
		Strategy:    decision.Strategy,
		Score:       decision.Score,
		Status:      decision.Status,
		Violation:   decision.Violation,
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.metrics.IncrementOutcome(decision.Level.String(), "audit_failed")
		return err
	}

	s.metrics.IncrementOutcome(decision.Level.String(), string(decision.Status))
	return nil
}

// Explain scores a hypothetical request without touching any value or
// writing history. Operator-facing.
func (s *Service) Explain(ctx context.Context, req Request) (scoring.Explanation, domain.MaskingLevel, error) {
	stats, err := s.history.QueryWindow(ctx, req.Requester.ID, req.Attribute.EntityType, s.window)
	if err != nil {
		return scoring.Explanation{}, domain.LevelSuppress, fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	factors := scoring.ComputeFactors(req.Requester, req.Context, req.Attribute, stats, s.policyCfg, s.params)
	explanation := s.model.Explain(factors)
	level, err := scoring.SelectLevel(explanation.Score)
	if err != nil {
		return explanation, domain.LevelSuppress, err
	}
	return explanation, level, nil
}

func (s *Service) logError(ctx context.Context, msg string, req Request, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg,
			"requester_id", req.Requester.ID,
			"entity_type", req.Attribute.EntityType,
			"error", err,
		)
	}
}
