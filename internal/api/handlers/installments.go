package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sheikh-saqib/installments-ledger/internal/api/middleware"
	"github.com/sheikh-saqib/installments-ledger/internal/installments"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Lifecycle is the installment engine surface the handlers call
type Lifecycle interface {
	Preview(total decimal.Decimal, count int, start time.Time) ([]models.PlannedInstallment, error)
	Create(ctx context.Context, base models.Transaction, count int) (string, error)
	Update(ctx context.Context, userID, groupID string, newBase models.Transaction, count int) (string, error)
	UpdateResolved(ctx context.Context, userID string, res installments.Resolution, newBase models.Transaction, count int) (string, error)
	GetGroup(ctx context.Context, userID, groupID string) (installments.Resolution, error)
	ResolveGroup(ctx context.Context, userID, recordID string) (installments.Resolution, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	DeleteResolved(ctx context.Context, userID string, res installments.Resolution) error
	DeleteMember(ctx context.Context, userID, recordID string) error
}

// InstallmentsHandler serves installment plan endpoints.
type InstallmentsHandler struct {
	engine Lifecycle
	log    zerolog.Logger
}

func NewInstallmentsHandler(engine Lifecycle, log zerolog.Logger) *InstallmentsHandler {
	return &InstallmentsHandler{
		engine: engine,
		log:    log,
	}
}

// Register mounts the routes on mux
func (h *InstallmentsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /installments/preview", h.Preview)
	mux.HandleFunc("POST /installments", h.Create)
	mux.HandleFunc("GET /installments/{groupID}", h.GetGroup)
	mux.HandleFunc("PUT /installments/{groupID}", h.UpdateGroup)
	mux.HandleFunc("DELETE /installments/{groupID}", h.DeleteGroup)
	mux.HandleFunc("GET /transactions/{id}/group", h.ResolveGroup)
	mux.HandleFunc("PUT /transactions/{id}/group", h.UpdateRecordGroup)
	mux.HandleFunc("DELETE /transactions/{id}", h.DeleteTransaction)
}

// Preview handles POST /installments/preview
func (h *InstallmentsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlan(w, r)
	if !ok {
		return
	}
	start, err := req.startDate()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.engine.Preview(req.Amount, req.count(), start)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"installments": toPlannedResponse(plan),
	})
}

// Create handles POST /installments
func (h *InstallmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlan(w, r)
	if !ok {
		return
	}
	base, err := req.base(middleware.UserIDFrom(r.Context()))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	groupID, err := h.engine.Create(r.Context(), base, req.count())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"group_id":     groupID,
		"installments": req.count(),
	})
}

// GetGroup handles GET /installments/{groupID}
func (h *InstallmentsHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.GetGroup(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("groupID"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toGroupResponse(res, false))
}

// UpdateGroup handles PUT /installments/{groupID}
func (h *InstallmentsHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlan(w, r)
	if !ok {
		return
	}
	userID := middleware.UserIDFrom(r.Context())
	base, err := req.base(userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	newGroupID, err := h.engine.Update(r.Context(), userID, r.PathValue("groupID"), base, req.count())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"group_id":     newGroupID,
		"installments": req.count(),
	})
}

// DeleteGroup handles DELETE /installments/{groupID}
func (h *InstallmentsHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteGroup(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("groupID"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveGroup handles GET /transactions/{id}/group
func (h *InstallmentsHandler) ResolveGroup(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ResolveGroup(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("id"))
	ambiguous := errors.Is(err, installments.ErrAmbiguousLegacyGroup)
	if err != nil && !ambiguous {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toGroupResponse(res, ambiguous))
}

// UpdateRecordGroup handles PUT /transactions/{id}/group?on_ambiguous=fail|single|group
func (h *InstallmentsHandler) UpdateRecordGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlan(w, r)
	if !ok {
		return
	}
	userID := middleware.UserIDFrom(r.Context())
	base, err := req.base(userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, ok := h.resolveForMutation(w, r, userID, r.PathValue("id"))
	if !ok {
		return
	}
	newGroupID, err := h.engine.UpdateResolved(r.Context(), userID, res, base, req.count())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"group_id":     newGroupID,
		"installments": req.count(),
	})
}

// DeleteTransaction handles DELETE /transactions/{id}?scope=single|group&on_ambiguous=fail|single|group.
// Without scope, installment members are deleted group-wide and plain records alone.
func (h *InstallmentsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r.Context())
	recordID := r.PathValue("id")

	switch scope := r.URL.Query().Get("scope"); scope {
	case "single":
		if err := h.engine.DeleteMember(r.Context(), userID, recordID); err != nil {
			h.writeEngineError(w, r, err)
			return
		}
	case "", "group":
		res, ok := h.resolveForMutation(w, r, userID, recordID)
		if !ok {
			return
		}
		if err := h.engine.DeleteResolved(r.Context(), userID, res); err != nil {
			h.writeEngineError(w, r, err)
			return
		}
	default:
		middleware.WriteError(w, http.StatusBadRequest, "scope must be single or group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveForMutation resolves the record's group and applies the on_ambiguous
// choice: fail (default) answers 409, single narrows to the record itself,
// group keeps the whole field match.
func (h *InstallmentsHandler) resolveForMutation(w http.ResponseWriter, r *http.Request, userID, recordID string) (installments.Resolution, bool) {
	res, err := h.engine.ResolveGroup(r.Context(), userID, recordID)
	if err == nil {
		return res, true
	}
	if !errors.Is(err, installments.ErrAmbiguousLegacyGroup) {
		h.writeEngineError(w, r, err)
		return installments.Resolution{}, false
	}

	switch r.URL.Query().Get("on_ambiguous") {
	case "group":
		return res, true
	case "single":
		for _, m := range res.Members {
			if m.ID == recordID {
				return installments.Resolution{
					Scheme:  installments.SchemeSingle,
					Members: []models.Transaction{m},
					State:   installments.ClassifyGroup([]models.Transaction{m}),
				}, true
			}
		}
		// seed was not part of the match: nothing safe to narrow to
		h.writeEngineError(w, r, err)
	case "", "fail":
		middleware.WriteJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"group": toGroupResponse(res, true),
		})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "on_ambiguous must be fail, single or group")
	}
	return installments.Resolution{}, false
}

func decodePlan(w http.ResponseWriter, r *http.Request) (planRequest, bool) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return planRequest{}, false
	}
	return req, true
}

func (h *InstallmentsHandler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *installments.PartialDeleteError

	switch {
	case errors.Is(err, installments.ErrInvalidPlan), errors.Is(err, installments.ErrInvalidTransaction):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, installments.ErrGroupNotFound), errors.Is(err, installments.ErrRecordNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, installments.ErrAmbiguousLegacyGroup):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &partial):
		middleware.WriteJSON(w, http.StatusMultiStatus, map[string]any{
			"error":      err.Error(),
			"deleted":    partial.Deleted,
			"failed_ids": partial.FailedIDs(),
		})
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("installment request failed")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
