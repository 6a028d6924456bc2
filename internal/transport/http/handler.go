// Package httptransport is the thin HTTP layer over the decision engine. It
// decodes and validates requests, delegates to the engine, and translates
// domain errors into JSON envelopes; no decision logic lives here.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/engine"
	"veil/internal/token"
)

// AuditReader exposes the audit trail for the operator listing endpoint.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler holds the transport dependencies.
type Handler struct {
	engine   *engine.Service
	tokens   *token.Service
	auditLog AuditReader
	logger   *slog.Logger
}

func NewHandler(eng *engine.Service, tokens *token.Service, auditLog AuditReader, logger *slog.Logger) *Handler {
	return &Handler{engine: eng, tokens: tokens, auditLog: auditLog, logger: logger}
}

func (h *Handler) handleMask(w http.ResponseWriter, r *http.Request) {
	var req MaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	detections, err := req.toDetections()
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	result, err := h.engine.MaskRecord(r.Context(), req.Requester.toDomain(), req.Context.toDomain(), detections)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, maskResponse(result))
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if !h.decode(w, r, &req) {
		return
	}
	tier, _ := domain.ParseSensitivityTier(req.Sensitivity)
	attr := domain.Attribute{
		EntityType:  domain.EntityType(strings.ToLower(strings.TrimSpace(req.EntityType))),
		Sensitivity: tier,
	}

	explanation, level, err := h.engine.Explain(r.Context(), engine.Request{
		Requester: req.Requester.toDomain(),
		Context:   req.Context.toDomain(),
		Attribute: attr,
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, explainResponse(explanation, level))
}

func (h *Handler) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(bearerToken(r), string(domain.CapabilityDecrypt))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusUnauthorized, "invalid_token", err)
		return
	}

	var req DecryptRequest
	if !h.decode(w, r, &req) {
		return
	}

	// The requester identity comes from the token, never from the body, so
	// the audit trail names whoever actually held the capability.
	requester := domain.Requester{
		ID:           claims.RequesterID,
		Capabilities: []domain.Capability{domain.Capability(claims.Capability)},
	}
	value, err := h.engine.Decrypt(r.Context(), requester, req.Ciphertext, req.KeyID)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, DecryptResponse{Value: value})
}

func (h *Handler) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.engine.Overrides(r.Context())
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, overrideListResponse(overrides))
}

func (h *Handler) handleUpsertOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpsertOverride(r.Context(), req.toDomain(), req.Actor.toDomain()); err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, OverridePayload{
		EntityType: req.EntityType,
		Role:       req.Role,
		Level:      req.Level,
	})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, ConfigResponse{Weights: weightsPayload(h.engine.Weights())})
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpdateWeights(r.Context(), req.Weights.toDomain(), req.Actor.toDomain()); err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ConfigResponse{Weights: weightsPayload(h.engine.Weights())})
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if h.auditLog == nil {
		h.writeError(r.Context(), w, http.StatusNotFound, "audit_listing_unavailable", errors.New("no queryable audit store configured"))
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(r.Context(), w, http.StatusBadRequest, "invalid_input", errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	events, err := h.auditLog.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, auditListResponse(events))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type validator interface {
	Validate() error
}

// decode parses and validates a JSON body, writing the error response itself.
// Returns false if the request was rejected.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req validator) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid_body", err)
		return false
	}
	if err := req.Validate(); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid_input", err)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// writeDomainError maps engine and domain errors onto HTTP statuses. Anything
// unrecognized is an internal error with no detail leaked.
func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var unknownRole *domain.UnknownRoleError
	var unknownPurpose *domain.UnknownPurposeError
	var mismatch *domain.TypeMismatchError
	var outOfRange *domain.ScoreOutOfRangeError

	switch {
	case errors.As(err, &unknownRole):
		h.writeError(ctx, w, http.StatusBadRequest, "unknown_role", err)
	case errors.As(err, &unknownPurpose):
		h.writeError(ctx, w, http.StatusBadRequest, "unknown_purpose", err)
	case errors.As(err, &mismatch):
		h.writeError(ctx, w, http.StatusUnprocessableEntity, "type_mismatch", err)
	case errors.As(err, &outOfRange):
		h.writeError(ctx, w, http.StatusInternalServerError, "score_out_of_range", err)
	case errors.Is(err, domain.ErrHistoryUnavailable):
		h.writeError(ctx, w, http.StatusServiceUnavailable, "history_unavailable", err)
	case errors.Is(err, engine.ErrDecryptNotAuthorized):
		h.writeError(ctx, w, http.StatusForbidden, "decrypt_not_authorized", err)
	case errors.Is(err, token.ErrInvalidToken):
		h.writeError(ctx, w, http.StatusUnauthorized, "invalid_token", err)
	default:
		h.writeError(ctx, w, http.StatusInternalServerError, "internal", errors.New("internal error"))
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "unhandled error", "error", err)
		}
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	if h.logger != nil && status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", "code", code, "error", err)
	}
	h.writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": err.Error(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && h.logger != nil {
		h.logger.Error("encode response", "error", err)
	}
}
