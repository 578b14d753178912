package discovery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/resonarr/backend/internal/normalize"
)

// AddArtist resolves a discovered artist to its canonical ID and adds it to
// the library, then refreshes the artist's card with the outcome.
func (e *Engine) AddArtist(ctx context.Context, connID, name string) {
	s := e.store.GetOrCreate(connID)
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	id, err := e.resolver.ResolveArtistID(ctx, name)
	if err != nil {
		slog.Error("artist resolution failed", "artist", name, "error", err)
		e.setCardStatus(s, name, string(AddOutcomeFailed))
		e.emitter.Emit(connID, EventToast, Toast{
			Title:   "Lookup failed",
			Message: "Could not reach MusicBrainz for " + name + ".",
		})
		return
	}
	if id == "" {
		e.setCardStatus(s, name, string(AddOutcomeFailed))
		e.emitter.Emit(connID, EventToast, Toast{
			Title:   "No match",
			Message: "No close MusicBrainz match for " + name + ".",
		})
		return
	}

	outcome, err := e.library.AddArtist(ctx, name, id)
	if err != nil {
		slog.Error("library add failed", "artist", name, "error", err)
		outcome = AddOutcomeFailed
	}
	if outcome == AddOutcomeAdded || outcome == AddOutcomeAlreadyPresent {
		e.recordOwned(s, name)
	}
	e.setCardStatus(s, name, string(outcome))
}

// AddToLibrary resolves and adds an artist outside any session, for the
// moderation queue. A missing identity match reports as a failed add.
func (e *Engine) AddToLibrary(ctx context.Context, name string) (AddOutcome, error) {
	id, err := e.resolver.ResolveArtistID(ctx, name)
	if err != nil {
		return AddOutcomeFailed, err
	}
	if id == "" {
		return AddOutcomeFailed, nil
	}
	outcome, err := e.library.AddArtist(ctx, name, id)
	if err != nil {
		return AddOutcomeFailed, err
	}
	if outcome == AddOutcomeAdded || outcome == AddOutcomeAlreadyPresent {
		e.catalog.RecordAddition(name)
	}
	return outcome, nil
}

// MarkCardStatus sets a card's status directly, for flows that bypass the
// library manager such as the request queue.
func (e *Engine) MarkCardStatus(connID, name, status string) {
	s := e.store.GetOrCreate(connID)
	e.setCardStatus(s, name, status)
}

// setCardStatus updates the stored card and pushes the refreshed card to the
// connection. An artist without a card still gets a status event so the
// client can reconcile.
func (e *Engine) setCardStatus(s *Session, name, status string) {
	key := normalize.Key(name)

	s.mu.Lock()
	card := Card{Name: name, Status: status}
	for i := range s.results {
		if normalize.Key(s.results[i].Name) == key {
			s.results[i].Status = status
			card = s.results[i]
			break
		}
	}
	s.mu.Unlock()

	e.emitter.Emit(s.ConnID, EventArtistStatus, card)
}

// recordOwned marks an artist as part of the library in both the shared
// catalog and the session's sidebar snapshot, so reruns exclude it without a
// full refresh.
func (e *Engine) recordOwned(s *Session, name string) {
	e.catalog.RecordAddition(name)

	key := normalize.Key(name)
	s.mu.Lock()
	if _, ok := s.libraryKeys[key]; !ok {
		s.libraryKeys[key] = struct{}{}
		s.library = append(s.library, LibraryItem{Name: normalize.Fold(name)})
	}
	s.mu.Unlock()
}
