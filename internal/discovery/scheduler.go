package discovery

import (
	"context"
	"log/slog"

	"github.com/resonarr/backend/internal/normalize"
)

// Start begins a discovery run from the checked sidebar artists. It resets
// the session's result state, builds the candidate list, and streams the
// first window.
func (e *Engine) Start(ctx context.Context, connID string, selected []string) {
	s := e.store.GetOrCreate(connID)
	if !e.ensureLibrary(ctx, s) {
		return
	}

	selection := make(map[string]struct{}, len(selected))
	for _, name := range trimmedSeeds(selected) {
		selection[normalize.Key(name)] = struct{}{}
	}

	// Cancel the previous run before taking the advance lock, so an in-flight
	// window exits at its next check instead of finishing. Holding the lock
	// from reset through the first window means a stale advance can never wake
	// up inside the new run's state.
	s.Stop()
	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	s.prepareForSearch(e.settings.Get().BatchSize)

	// Seeds follow sidebar order so runs are reproducible for a selection.
	var seeds []string
	s.mu.Lock()
	for i := range s.library {
		_, sel := selection[normalize.Key(s.library[i].Name)]
		s.library[i].Checked = sel
		if sel {
			seeds = append(seeds, s.library[i].Name)
		}
	}
	s.seeds = seeds
	excluded := make(map[string]struct{}, len(s.libraryKeys))
	for k := range s.libraryKeys {
		excluded[k] = struct{}{}
	}
	s.mu.Unlock()

	if len(seeds) == 0 {
		s.markStopped()
		e.emitter.Emit(connID, EventToast, Toast{
			Title:   "Selection required",
			Message: "Check at least one artist to search from.",
		})
		e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
		return
	}

	e.emitter.Emit(connID, EventClear, nil)
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())

	candidates := BuildCandidates(ctx, e.similar, seeds, excluded, DefaultCandidateCap)
	s.mu.Lock()
	s.candidates = candidates
	s.mu.Unlock()

	e.advance(ctx, s)
}

// LoadMore streams the next window of the current run. A request after an
// explicit stop is ignored; a request past the end of the candidate list
// reports exhaustion instead of results.
func (e *Engine) LoadMore(ctx context.Context, connID string) {
	s, ok := e.store.Get(connID)
	if !ok {
		return
	}
	s.mu.Lock()
	started := s.initialSent
	s.mu.Unlock()
	if !started {
		return
	}

	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	// An explicitly stopped run ignores request_more entirely; only natural
	// exhaustion gets the notice.
	if s.Stopped() {
		return
	}
	s.mu.Lock()
	exhausted := s.cursor >= len(s.candidates)
	s.mu.Unlock()
	if exhausted {
		s.markStopped()
		e.emitter.Emit(connID, EventToast, Toast{
			Title:   "All caught up",
			Message: "No more similar artists for this selection.",
		})
		e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
		return
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	e.advance(ctx, s)
}

// advance streams one window of candidates as enriched cards. The caller
// must hold s.advanceMu. Cancellation is observed between items and again
// after each enrichment, so a stop never produces a completion event.
func (e *Engine) advance(ctx context.Context, s *Session) {
	if s.Cancelled() {
		s.markStopped()
		return
	}

	s.mu.Lock()
	initial := !s.initialSent
	end := s.cursor + s.batchSize
	if end > len(s.candidates) {
		end = len(s.candidates)
	}
	window := make([]Candidate, end-s.cursor)
	copy(window, s.candidates[s.cursor:end])
	s.mu.Unlock()

	if len(window) == 0 {
		s.markStopped()
		if initial {
			e.emitter.Emit(s.ConnID, EventToast, Toast{
				Title:   "Nothing new",
				Message: "No similar artists outside your library for this selection.",
			})
			e.emitter.Emit(s.ConnID, EventInitialLoadComplete, BatchComplete{HasMore: false})
		} else {
			e.emitter.Emit(s.ConnID, EventLoadMoreComplete, BatchComplete{HasMore: false})
		}
		return
	}

	for _, cand := range window {
		if s.Cancelled() {
			s.markStopped()
			return
		}
		card, err := e.buildCard(ctx, cand.Name, cand.Match)
		if s.Cancelled() {
			s.markStopped()
			return
		}
		if err != nil {
			// The candidate still consumes its slot in the window; only the
			// card is withheld.
			slog.Debug("skipping candidate after failed enrichment", "artist", cand.Name, "error", err)
			continue
		}
		if s.appendResult(cand.Key, card) {
			e.emitter.Emit(s.ConnID, EventArtistsLoaded, []Card{card})
		}
	}

	s.mu.Lock()
	s.cursor += len(window)
	hasMore := s.cursor < len(s.candidates)
	s.initialSent = true
	s.running = false
	s.mu.Unlock()
	if !hasMore {
		s.cancelled.Store(true)
	}

	event := EventLoadMoreComplete
	if initial {
		event = EventInitialLoadComplete
	}
	e.emitter.Emit(s.ConnID, event, BatchComplete{HasMore: hasMore})
}
