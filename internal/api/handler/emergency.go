package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/api/middleware"
	"github.com/edvin/ern/internal/api/request"
	"github.com/edvin/ern/internal/api/response"
	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/idempotency"
	"github.com/edvin/ern/internal/model"
)

// IdempotencyKeyHeader lets a client retry a trigger without opening a
// second case.
const IdempotencyKeyHeader = "Idempotency-Key"

// EmergencyService is the escalation engine as seen by the HTTP layer.
type EmergencyService interface {
	Trigger(ctx context.Context, req escalation.TriggerRequest) (*escalation.TriggerResult, error)
	Resolve(ctx context.Context, caseID, resolvedBy string) (*model.EmergencyCase, error)
	RecordResponse(ctx context.Context, caseID, responderID string, status model.AssignmentStatus) (*escalation.ResponseResult, error)
	GetCase(ctx context.Context, caseID, viewerID string) (*escalation.CaseDetail, error)
	ReadLog(ctx context.Context, caseID, viewerID string) ([]model.EscalationLogEntry, error)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*idempotency.Record, error)
	Complete(ctx context.Context, key string, rec idempotency.Record) error
	Abandon(ctx context.Context, key string) error
}

type TriggerResponse struct {
	CaseID        string                       `json:"caseId"`
	NotifiedCount int                          `json:"notifiedCount"`
	AlertIDs      []string                     `json:"alertIds"`
	Failures      []escalation.DispatchFailure `json:"failures,omitempty"`
}

type ResolveResponse struct {
	CaseID string           `json:"caseId"`
	Status model.CaseStatus `json:"status"`
}

type RecordResponseResponse struct {
	CaseID           string                 `json:"caseId"`
	Status           model.CaseStatus       `json:"status"`
	AssignmentStatus model.AssignmentStatus `json:"assignmentStatus"`
}

type LogResponse struct {
	CaseID  string                     `json:"caseId"`
	Entries []model.EscalationLogEntry `json:"entries"`
}

type Emergency struct {
	svc  EmergencyService
	idem IdempotencyStore
}

// NewEmergency wires the emergency routes. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewEmergency(svc EmergencyService, idem IdempotencyStore) *Emergency {
	return &Emergency{svc: svc, idem: idem}
}

// Trigger godoc
//
//	@Summary		Trigger an emergency
//	@Description	Opens a case for the caller and notifies their responder network. Delivery failures are reported in the body, not as an error status.
//	@Tags			Emergencies
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string						false	"Client retry key"
//	@Param			body			body		request.TriggerEmergency	true	"Emergency details"
//	@Success		201				{object}	TriggerResponse
//	@Failure		400				{object}	response.ErrorResponse
//	@Failure		401				{object}	response.ErrorResponse
//	@Failure		404				{object}	response.ErrorResponse
//	@Failure		409				{object}	response.ErrorResponse
//	@Failure		500				{object}	response.ErrorResponse
//	@Router			/emergency/trigger [post]
func (h *Emergency) Trigger(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerEmergency
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	severity, err := model.ParseSeverity(req.Severity)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)
	logger := zerolog.Ctx(ctx)

	key, done := h.claimKey(w, r, userID)
	if done {
		return
	}

	result, err := h.svc.Trigger(ctx, escalation.TriggerRequest{
		RequesterID: userID,
		Severity:    severity,
		Location:    req.Location.Model(),
		Description: req.Description,
		TriggerType: req.TriggerType,
	})
	if err != nil {
		if key != "" {
			if aerr := h.idem.Abandon(context.WithoutCancel(ctx), key); aerr != nil {
				logger.Warn().Err(aerr).Msg("release idempotency key failed")
			}
		}
		response.WriteServiceError(w, err)
		return
	}

	resp := TriggerResponse{
		CaseID:        result.Case.ID,
		NotifiedCount: result.Dispatch.NotifiedCount,
		AlertIDs:      result.Dispatch.AlertIDs,
		Failures:      result.Dispatch.Failures,
	}
	if key != "" {
		body, err := json.Marshal(resp)
		if err == nil {
			err = h.idem.Complete(context.WithoutCancel(ctx), key, idempotency.Record{Status: http.StatusCreated, Body: body})
		}
		if err != nil {
			logger.Warn().Err(err).Str("case_id", resp.CaseID).Msg("store idempotent response failed")
		}
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// claimKey claims the request's idempotency key and returns it, or "" when
// none applies. done reports that a response has already been written.
// Store outages degrade to a plain trigger.
func (h *Emergency) claimKey(w http.ResponseWriter, r *http.Request, userID string) (key string, done bool) {
	header := r.Header.Get(IdempotencyKeyHeader)
	if h.idem == nil || header == "" {
		return "", false
	}
	key = userID + ":" + header

	rec, err := h.idem.Begin(r.Context(), key)
	switch {
	case errors.Is(err, idempotency.ErrInProgress):
		response.WriteError(w, http.StatusConflict, err.Error())
		return "", true
	case err != nil:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("idempotency store unavailable")
		return "", false
	case rec != nil:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.Status)
		w.Write(rec.Body)
		return "", true
	}
	return key, false
}

// Resolve godoc
//
//	@Summary		Resolve an emergency
//	@Description	Closes the case. Only its requester may resolve it.
//	@Tags			Emergencies
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Case ID"
//	@Success		200	{object}	ResolveResponse
//	@Failure		400	{object}	response.ErrorResponse
//	@Failure		401	{object}	response.ErrorResponse
//	@Failure		403	{object}	response.ErrorResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Failure		409	{object}	response.ErrorResponse
//	@Failure		500	{object}	response.ErrorResponse
//	@Router			/emergency/{id}/resolve [post]
func (h *Emergency) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.Resolve(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ResolveResponse{CaseID: c.ID, Status: c.Status})
}

// RecordResponse godoc
//
//	@Summary		Report responder progress
//	@Description	Moves the caller's assignment on the case forward (acknowledged, en_route, arrived).
//	@Tags			Emergencies
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Case ID"
//	@Param			body	body		request.RecordResponse	true	"New status"
//	@Success		200		{object}	RecordResponseResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		401		{object}	response.ErrorResponse
//	@Failure		403		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/emergency/{id}/response [post]
func (h *Emergency) RecordResponse(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RecordResponse
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.RecordResponse(r.Context(), id, middleware.UserID(r.Context()), model.AssignmentStatus(req.Status))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, RecordResponseResponse{
		CaseID:           result.CaseID,
		Status:           result.CaseStatus,
		AssignmentStatus: result.Assignment.Status,
	})
}

// Get godoc
//
//	@Summary		Get an emergency
//	@Description	Returns the case with its alerts and assignments. Visible to the requester and assigned responders.
//	@Tags			Emergencies
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Case ID"
//	@Success		200	{object}	escalation.CaseDetail
//	@Failure		400	{object}	response.ErrorResponse
//	@Failure		403	{object}	response.ErrorResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Failure		500	{object}	response.ErrorResponse
//	@Router			/emergency/{id} [get]
func (h *Emergency) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.svc.GetCase(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, detail)
}

// Log godoc
//
//	@Summary		Read the escalation log
//	@Description	Returns the append-only audit trail of the case in order.
//	@Tags			Emergencies
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Case ID"
//	@Success		200	{object}	LogResponse
//	@Failure		400	{object}	response.ErrorResponse
//	@Failure		403	{object}	response.ErrorResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Failure		500	{object}	response.ErrorResponse
//	@Router			/emergency/{id}/log [get]
func (h *Emergency) Log(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.svc.ReadLog(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.EscalationLogEntry{}
	}
	response.WriteJSON(w, http.StatusOK, LogResponse{CaseID: id, Entries: entries})
}
