package discovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/resonarr/backend/internal/normalize"
)

const personalSeedLimit = 20

// AIPrompt runs prompt-seeded discovery: the assistant proposes seed artists
// for a free-text mood description, the seeds themselves stream as the first
// window, and their similar artists back the request_more path.
func (e *Engine) AIPrompt(ctx context.Context, connID, prompt string) {
	s := e.store.GetOrCreate(connID)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		e.emitter.Emit(connID, EventAIPromptError, ErrorMessage{
			Message: "Describe the music you are in the mood for first.",
		})
		return
	}
	if !e.ensureLibrary(ctx, s) {
		e.emitter.Emit(connID, EventAIPromptError, ErrorMessage{
			Message: "The library is unavailable right now. Try again once it is reachable.",
		})
		return
	}

	seeds, err := e.seeder.GenerateSeeds(ctx, prompt, e.libraryNames(s))
	if err != nil {
		msg := "The assistant could not produce suggestions. Try again in a moment."
		if errors.Is(err, ErrNotConfigured) {
			msg = "Add an OpenAI API key in settings to use prompt discovery."
		} else {
			slog.Error("seed generation failed", "error", err)
		}
		e.emitter.Emit(connID, EventAIPromptError, ErrorMessage{Message: msg})
		return
	}

	fresh, skipped := e.partitionSeeds(s, seeds)
	if len(fresh) == 0 {
		e.emitter.Emit(connID, EventAIPromptError, ErrorMessage{
			Message: "Every suggestion is already in your library. Try a more specific prompt.",
		})
		return
	}

	// As in Start, cancel any previous run and hold the advance lock across
	// reset and the seed window so a stale advance cannot touch the new run.
	s.Stop()
	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	s.prepareForSearch(e.settings.Get().BatchSize)
	e.emitter.Emit(connID, EventAIPromptAck, SeedAck{Seeds: fresh, Skipped: skipped})
	e.streamSeedRun(ctx, s, fresh, skipped)
}

// PersonalRecs runs discovery seeded from the user's own listening profile.
// Recommended artists are preferred; top artists are the fallback when the
// provider has no recommendations for the account.
func (e *Engine) PersonalRecs(ctx context.Context, connID, source, username string) {
	s := e.store.GetOrCreate(connID)
	if source != "lastfm" {
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{Message: "Unknown discovery source."})
		return
	}
	if !e.listen.Configured() {
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{
			Message: "Add a Last.fm API key in settings first.",
		})
		return
	}
	if strings.TrimSpace(username) == "" {
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{
			Message: "Add your Last.fm username on your profile first.",
		})
		return
	}
	if !e.ensureLibrary(ctx, s) {
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{
			Message: "The library is unavailable right now. Try again once it is reachable.",
		})
		return
	}

	names, err := e.listen.RecommendedArtists(ctx, username, personalSeedLimit)
	if err != nil || len(names) == 0 {
		names, err = e.listen.TopArtists(ctx, username, personalSeedLimit)
	}
	if err != nil {
		slog.Error("personal seed fetch failed", "username", username, "error", err)
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{
			Message: "Could not fetch your Last.fm listening history.",
		})
		return
	}

	fresh, skipped := e.partitionSeeds(s, names)
	if len(fresh) == 0 {
		e.emitter.Emit(connID, EventUserRecsAck, SeedAck{Source: source, Username: username, Seeds: []string{}})
		e.emitter.Emit(connID, EventUserRecsError, ErrorMessage{
			Message: "Everything Last.fm suggests is already in your library.",
		})
		return
	}

	s.Stop()
	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	s.prepareForSearch(e.settings.Get().BatchSize)
	e.emitter.Emit(connID, EventUserRecsAck, SeedAck{
		Source:   source,
		Username: username,
		Seeds:    fresh,
		Skipped:  skipped,
	})
	e.streamSeedRun(ctx, s, fresh, skipped)
	e.EmitPersonalSources(connID, username)
}

// EmitPersonalSources tells the connection which personal discovery sources
// it can use and why the others are disabled.
func (e *Engine) EmitPersonalSources(connID, username string) {
	state := SourceState{Configured: e.listen.Configured(), Username: username}
	switch {
	case !state.Configured:
		state.Reason = "Last.fm API key not configured"
	case username == "":
		state.Reason = "No Last.fm username on your profile"
	default:
		state.Enabled = true
	}
	e.emitter.Emit(connID, EventPersonalSources, PersonalSourcesState{LastFM: state})
}

// streamSeedRun streams the seed artists themselves as the initial window,
// then installs their similar artists as the candidate list for request_more.
// The caller must hold s.advanceMu and have called prepareForSearch.
func (e *Engine) streamSeedRun(ctx context.Context, s *Session, seeds, skipped []string) {
	connID := s.ConnID

	s.mu.Lock()
	s.seeds = seeds
	s.seedKeys = make(map[string]struct{}, len(seeds))
	for _, name := range seeds {
		s.seedKeys[normalize.Key(name)] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(s.libraryKeys)+len(s.seedKeys))
	for k := range s.libraryKeys {
		excluded[k] = struct{}{}
	}
	for k := range s.seedKeys {
		excluded[k] = struct{}{}
	}
	s.mu.Unlock()

	e.emitter.Emit(connID, EventClear, nil)
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
	if len(skipped) > 0 {
		e.emitter.Emit(connID, EventToast, Toast{
			Title:   "Already in your library",
			Message: strings.Join(skipped, ", "),
		})
	}

	for _, name := range seeds {
		if s.Cancelled() {
			s.markStopped()
			return
		}
		card, err := e.buildCard(ctx, name, nil)
		if s.Cancelled() {
			s.markStopped()
			return
		}
		if err != nil {
			slog.Debug("skipping seed after failed enrichment", "artist", name, "error", err)
			continue
		}
		if s.appendResult(normalize.Key(name), card) {
			e.emitter.Emit(connID, EventArtistsLoaded, []Card{card})
		}
	}

	candidates := BuildCandidates(ctx, e.similar, seeds, excluded, DefaultCandidateCap)
	s.mu.Lock()
	s.candidates = candidates
	s.initialSent = true
	s.running = false
	hasMore := len(candidates) > 0
	s.mu.Unlock()

	e.emitter.Emit(connID, EventInitialLoadComplete, BatchComplete{HasMore: hasMore})
	e.emitter.Emit(connID, EventLibraryUpdate, s.libraryUpdate())
}

// partitionSeeds deduplicates seed names and splits them into those not yet
// in the library and those already owned.
func (e *Engine) partitionSeeds(s *Session, names []string) (fresh, skipped []string) {
	s.mu.Lock()
	owned := make(map[string]struct{}, len(s.libraryKeys))
	for k := range s.libraryKeys {
		owned[k] = struct{}{}
	}
	s.mu.Unlock()

	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := normalize.Key(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := owned[key]; ok {
			skipped = append(skipped, name)
			continue
		}
		fresh = append(fresh, name)
	}
	return fresh, skipped
}
