package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/discovery"
	"github.com/resonarr/backend/internal/logging"
	"github.com/resonarr/backend/internal/middleware"
	"github.com/resonarr/backend/internal/models"
	"github.com/resonarr/backend/internal/services"
)

// DiscoveryHandler accepts discovery actions over HTTP and hands them to the
// engine. Actions are acknowledged immediately; results arrive on the
// caller's event stream, so every action runs in its own goroutine detached
// from the request.
type DiscoveryHandler struct {
	engine  *discovery.Engine
	queries *db.Queries
	preview *services.PreviewService
	lastfm  *services.LastFMService
}

func NewDiscoveryHandler(engine *discovery.Engine, queries *db.Queries, preview *services.PreviewService, lastfm *services.LastFMService) *DiscoveryHandler {
	return &DiscoveryHandler{engine: engine, queries: queries, preview: preview, lastfm: lastfm}
}

// session validates that the connection belongs to the caller and returns
// its ID. Actions against someone else's stream are rejected.
func (h *DiscoveryHandler) session(w http.ResponseWriter, r *http.Request, connID string) bool {
	if connID == "" {
		writeError(w, http.StatusBadRequest, "connectionId is required")
		return false
	}
	s, ok := h.engine.Store().Get(connID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown connection")
		return false
	}
	claims := middleware.GetClaims(r.Context())
	if userID, _ := s.User(); userID != claims.UserID {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventNonAdminAccess, "action on another user's connection")
		writeError(w, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, models.AcceptedResponse{Status: "accepted"})
}

// actionContext detaches the work from the HTTP request, which returns as
// soon as the action is accepted.
func actionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// FetchLibrary refreshes the sidebar from the library manager.
func (h *DiscoveryHandler) FetchLibrary(w http.ResponseWriter, r *http.Request) {
	var req models.FetchLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.FetchCatalog(ctx, req.ConnectionID, req.Checked)
	accepted(w)
}

// OpenSidebar serves the sidebar from the shared cache.
func (h *DiscoveryHandler) OpenSidebar(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.SidebarOpened(ctx, req.ConnectionID)
	accepted(w)
}

// Start begins a discovery run from the checked sidebar artists.
func (h *DiscoveryHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.Start(ctx, req.ConnectionID, req.Artists)
	accepted(w)
}

// More streams the next result window.
func (h *DiscoveryHandler) More(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.LoadMore(ctx, req.ConnectionID)
	accepted(w)
}

// Stop cancels the in-flight run.
func (h *DiscoveryHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	h.engine.Stop(req.ConnectionID)
	accepted(w)
}

// Add sends a discovered artist straight to the library manager. Admin only;
// other users go through the request queue.
func (h *DiscoveryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.ArtistActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.AddArtist(ctx, req.ConnectionID, req.Artist)
	accepted(w)
}

// Prompt runs AI prompt discovery.
func (h *DiscoveryHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req models.PromptDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}
	ctx := actionContext(r)
	go h.engine.AIPrompt(ctx, req.ConnectionID, req.Prompt)
	accepted(w)
}

// Personal runs discovery seeded from the caller's listening profile.
func (h *DiscoveryHandler) Personal(w http.ResponseWriter, r *http.Request) {
	var req models.PersonalDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.session(w, r, req.ConnectionID) {
		return
	}

	claims := middleware.GetClaims(r.Context())
	username := ""
	if user, err := h.queries.GetUserByID(r.Context(), claims.UserID); err == nil {
		username = user.LastfmUsername
	}

	ctx := actionContext(r)
	go h.engine.PersonalRecs(ctx, req.ConnectionID, req.Source, username)
	accepted(w)
}

// Preview finds a playable sample for an artist. Unlike the other actions
// the result comes back on the response, not the stream.
func (h *DiscoveryHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" {
		writeError(w, http.StatusBadRequest, "artist is required")
		return
	}

	// Without a named track, search with the artist's biggest one.
	if req.Track == "" && h.lastfm.Configured() {
		if tracks, err := h.lastfm.TopTracks(r.Context(), req.Artist, 1); err == nil && len(tracks) > 0 {
			req.Track = tracks[0]
		}
	}

	preview, err := h.preview.TrackPreview(r.Context(), req.Artist, req.Track)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "preview lookup failed", err)
		return
	}
	if preview == nil {
		writeError(w, http.StatusNotFound, "no preview available")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Bio returns the artist's short biography for the card detail view.
func (h *DiscoveryHandler) Bio(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" {
		writeError(w, http.StatusBadRequest, "artist is required")
		return
	}

	summary, err := h.lastfm.ArtistBio(r.Context(), req.Artist)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "bio lookup failed", err)
		return
	}
	if summary == "" {
		writeError(w, http.StatusNotFound, "no biography available")
		return
	}
	writeJSON(w, http.StatusOK, models.ArtistBioResponse{Artist: req.Artist, Summary: summary})
}
