package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/discovery"
	"github.com/resonarr/backend/internal/middleware"
	"github.com/resonarr/backend/internal/models"
)

// RequestHandler serves the artist request queue: non-admin users queue
// artists they want, admins approve or reject them. Approval pushes the
// artist into the library through the engine.
type RequestHandler struct {
	queries *db.Queries
	engine  *discovery.Engine
}

func NewRequestHandler(queries *db.Queries, engine *discovery.Engine) *RequestHandler {
	return &RequestHandler{queries: queries, engine: engine}
}

func requestResponse(row db.ListArtistRequestsRow) models.ArtistRequestResponse {
	out := models.ArtistRequestResponse{
		ID:         row.ID,
		ArtistName: row.ArtistName,
		Status:     row.Status,
		Username:   row.Username,
		CreatedAt:  row.CreatedAt,
	}
	if row.ResolvedAt.Valid {
		t := row.ResolvedAt.Time
		out.ResolvedAt = &t
	}
	return out
}

// List returns the full queue, newest first. Admin only.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.ListArtistRequests(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list requests", err)
		return
	}

	out := make([]models.ArtistRequestResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, requestResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// Submit queues an artist for admin review and marks the caller's card. A
// pending request for the same artist is refused so the queue stays free of
// duplicates.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.ArtistActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Artist = strings.TrimSpace(req.Artist)
	if req.Artist == "" {
		writeError(w, http.StatusBadRequest, "artist is required")
		return
	}

	pending, err := h.queries.CountPendingRequestsForArtist(r.Context(), req.Artist)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to submit request", err)
		return
	}
	if pending > 0 {
		writeError(w, http.StatusConflict, "this artist is already awaiting review")
		return
	}

	claims := middleware.GetClaims(r.Context())
	created, err := h.queries.CreateArtistRequest(r.Context(), db.CreateArtistRequestParams{
		UserID:     claims.UserID,
		ArtistName: req.Artist,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to submit request", err)
		return
	}

	if req.ConnectionID != "" {
		h.engine.MarkCardStatus(req.ConnectionID, req.Artist, discovery.StatusRequested)
	}

	writeJSON(w, http.StatusCreated, models.ArtistRequestResponse{
		ID:         created.ID,
		ArtistName: created.ArtistName,
		Status:     created.Status,
		Username:   claims.Username,
		CreatedAt:  created.CreatedAt,
	})
}

// Approve resolves a pending request and adds the artist to the library.
// The request stays pending if the add does not land, so admins can retry.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "rid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := h.queries.GetArtistRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load request", err)
		return
	}
	if request.Status != db.RequestStatusPending {
		writeError(w, http.StatusConflict, "request already resolved")
		return
	}

	outcome, err := h.engine.AddToLibrary(r.Context(), request.ArtistName)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "library add failed", err)
		return
	}
	if outcome != discovery.AddOutcomeAdded && outcome != discovery.AddOutcomeAlreadyPresent {
		writeJSON(w, http.StatusOK, models.ResolveArtistRequestResponse{
			Status:  db.RequestStatusPending,
			Outcome: string(outcome),
		})
		return
	}

	claims := middleware.GetClaims(r.Context())
	if _, err := h.queries.ResolveArtistRequest(r.Context(), db.ResolveArtistRequestParams{
		Status:     db.RequestStatusApproved,
		ResolvedBy: claims.UserID,
		ID:         id,
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve request", err)
		return
	}

	writeJSON(w, http.StatusOK, models.ResolveArtistRequestResponse{
		Status:  db.RequestStatusApproved,
		Outcome: string(outcome),
	})
}

// Reject resolves a pending request without touching the library.
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "rid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	claims := middleware.GetClaims(r.Context())
	changed, err := h.queries.ResolveArtistRequest(r.Context(), db.ResolveArtistRequestParams{
		Status:     db.RequestStatusRejected,
		ResolvedBy: claims.UserID,
		ID:         id,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve request", err)
		return
	}
	if changed == 0 {
		writeError(w, http.StatusConflict, "request is not pending")
		return
	}

	writeJSON(w, http.StatusOK, models.ResolveArtistRequestResponse{Status: db.RequestStatusRejected})
}
