// Package discovery implements the per-connection artist discovery engine:
// candidate building, windowed batch streaming, and the session registry
// behind the realtime channel.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/resonarr/backend/internal/catalog"
	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/normalize"
)

// SettingsProvider hands out a consistent snapshot of the runtime settings.
type SettingsProvider interface {
	Get() config.Settings
}

// Engine coordinates discovery runs across all live sessions. Every public
// method is safe for concurrent use and is expected to be called from its own
// goroutine per action.
type Engine struct {
	store    *Store
	catalog  *catalog.Cache
	emitter  Emitter
	library  LibraryGateway
	similar  SimilarityGateway
	enrich   EnrichmentGateway
	images   ImageGateway
	resolver IdentityResolver
	seeder   SeedRecommender
	listen   ListeningGateway
	settings SettingsProvider
}

// EngineParams collects the engine's collaborators.
type EngineParams struct {
	Store    *Store
	Catalog  *catalog.Cache
	Emitter  Emitter
	Library  LibraryGateway
	Similar  SimilarityGateway
	Enrich   EnrichmentGateway
	Images   ImageGateway
	Resolver IdentityResolver
	Seeder   SeedRecommender
	Listen   ListeningGateway
	Settings SettingsProvider
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(p EngineParams) *Engine {
	return &Engine{
		store:    p.Store,
		catalog:  p.Catalog,
		emitter:  p.Emitter,
		library:  p.Library,
		similar:  p.Similar,
		enrich:   p.Enrich,
		images:   p.Images,
		resolver: p.Resolver,
		seeder:   p.Seeder,
		listen:   p.Listen,
		settings: p.Settings,
	}
}

// Store exposes the session registry, for connection teardown by the
// transport layer.
func (e *Engine) Store() *Store {
	return e.store
}

// Connect registers a session for a new connection and replays any state the
// connection missed: identity, prior results, the sidebar snapshot, and
// personal source availability.
func (e *Engine) Connect(connID string, userID int64, isAdmin bool, lastfmUsername string) {
	s := e.store.GetOrCreate(connID)
	s.SetUser(userID, isAdmin)

	e.emitter.Emit(connID, EventUserInfo, UserInfo{IsAdmin: isAdmin})

	if results := s.Results(); len(results) > 0 {
		e.emitter.Emit(connID, EventArtistsLoaded, results)
	}
	s.mu.Lock()
	hasLibrary := len(s.library) > 0
	s.mu.Unlock()
	if hasLibrary {
		e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
	}
	e.EmitPersonalSources(connID, lastfmUsername)
}

// Disconnect stops and forgets the session behind a closed connection.
func (e *Engine) Disconnect(connID string) {
	e.store.Remove(connID)
}

// SidebarOpened serves the sidebar from the shared cache without a network
// call; FetchCatalog is the explicit refresh path.
func (e *Engine) SidebarOpened(ctx context.Context, connID string) {
	s := e.store.GetOrCreate(connID)
	if len(e.catalog.Snapshot()) == 0 {
		e.refreshCatalog(ctx, s)
		return
	}
	e.adoptCatalog(s, false)
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
}

// FetchCatalog refreshes the shared catalog from the library manager and
// pushes the new sidebar snapshot to the session. checked controls whether
// every entry starts selected.
func (e *Engine) FetchCatalog(ctx context.Context, connID string, checked bool) {
	s := e.store.GetOrCreate(connID)
	if _, err := e.catalog.Refresh(ctx, e.library); err != nil {
		slog.Error("catalog refresh failed", "error", err)
		e.emitter.Emit(connID, EventLibraryUpdate, LibraryUpdate{
			Status: "error",
			Code:   http502,
			Error:  "Unable to reach the library manager. Check the connection settings.",
		})
		return
	}
	e.adoptCatalog(s, checked)
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
}

const http502 = 502

func (e *Engine) refreshCatalog(ctx context.Context, s *Session) {
	e.FetchCatalog(ctx, s.ConnID, false)
}

// adoptCatalog copies the shared catalog snapshot into the session's sidebar
// state, preserving existing checkbox selections by key.
func (e *Engine) adoptCatalog(s *Session, checked bool) {
	snap := e.catalog.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]bool, len(s.library))
	for _, item := range s.library {
		prev[normalize.Key(item.Name)] = item.Checked
	}

	s.library = make([]LibraryItem, 0, len(snap))
	s.libraryKeys = make(map[string]struct{}, len(snap))
	for _, entry := range snap {
		sel := checked
		if was, ok := prev[entry.Key]; ok && !checked {
			sel = was
		}
		s.library = append(s.library, LibraryItem{Name: entry.Name, Checked: sel})
		s.libraryKeys[entry.Key] = struct{}{}
	}
}

// Stop cancels the session's in-flight run. Results streamed so far stay on
// the session for replay; a later start discards them.
func (e *Engine) Stop(connID string) {
	s := e.store.GetOrCreate(connID)
	s.Stop()
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
}

// ensureLibrary makes sure the session has a sidebar snapshot, refreshing the
// shared catalog once if it is empty. Returns false when the library is
// unreachable or genuinely empty.
func (e *Engine) ensureLibrary(ctx context.Context, s *Session) bool {
	s.mu.Lock()
	n := len(s.library)
	s.mu.Unlock()
	if n > 0 {
		return true
	}

	if len(e.catalog.Snapshot()) == 0 {
		if _, err := e.catalog.Refresh(ctx, e.library); err != nil {
			slog.Error("catalog refresh failed", "error", err)
			e.emitter.Emit(s.ConnID, EventLibraryUpdate, LibraryUpdate{
				Status: "error",
				Code:   http502,
				Error:  "Unable to reach the library manager. Check the connection settings.",
			})
			return false
		}
	}
	e.adoptCatalog(s, false)

	s.mu.Lock()
	n = len(s.library)
	s.mu.Unlock()
	return n > 0
}

// libraryNames returns the session's sidebar display names, for prompt
// grounding.
func (e *Engine) libraryNames(s *Session) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.library))
	for _, item := range s.library {
		names = append(names, item.Name)
	}
	return names
}

func trimmedSeeds(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if name := strings.TrimSpace(r); name != "" {
			out = append(out, name)
		}
	}
	return out
}
