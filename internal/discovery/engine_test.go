package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/resonarr/backend/internal/catalog"
	"github.com/resonarr/backend/internal/config"
)

type recorded struct {
	target  string
	name    string
	payload any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recordingEmitter) Emit(target, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{target, event, payload})
}

func (r *recordingEmitter) all(name string) []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorded
	for _, ev := range r.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingEmitter) count(name string) int {
	return len(r.all(name))
}

// loadedNames flattens every artists_loaded payload into the streamed card
// names, in emission order.
func (r *recordingEmitter) loadedNames() []string {
	var out []string
	for _, ev := range r.all(EventArtistsLoaded) {
		for _, card := range ev.payload.([]Card) {
			out = append(out, card.Name)
		}
	}
	return out
}

type fakeLibrary struct {
	mu      sync.Mutex
	artists []string
	listErr error
	outcome AddOutcome
	addErr  error
	added   []string
}

func (f *fakeLibrary) ListArtists(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artists, f.listErr
}

func (f *fakeLibrary) AddArtist(ctx context.Context, name, foreignID string) (AddOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name+"/"+foreignID)
	return f.outcome, f.addErr
}

type fakeEnrich struct {
	onDescribe func(name string)
	errs       map[string]error
}

func (f *fakeEnrich) Describe(ctx context.Context, name string) (Description, error) {
	if f.onDescribe != nil {
		f.onDescribe(name)
	}
	if err := f.errs[name]; err != nil {
		return Description{}, err
	}
	return Description{Tags: []string{"rock"}, Listeners: 1200, PlayCount: 3_400_000}, nil
}

type fakeImages struct{}

func (fakeImages) ArtistImage(ctx context.Context, name string) (string, error) {
	return "https://img.example/" + name, nil
}

type fakeResolver struct {
	id  string
	err error
}

func (f *fakeResolver) ResolveArtistID(ctx context.Context, name string) (string, error) {
	return f.id, f.err
}

type fakeSeeder struct {
	seeds []string
	err   error
}

func (f *fakeSeeder) GenerateSeeds(ctx context.Context, prompt string, library []string) ([]string, error) {
	return f.seeds, f.err
}

type fakeListen struct {
	configured bool
	recs       []string
	recErr     error
	top        []string
	topErr     error
}

func (f *fakeListen) Configured() bool { return f.configured }

func (f *fakeListen) RecommendedArtists(ctx context.Context, username string, limit int) ([]string, error) {
	return f.recs, f.recErr
}

func (f *fakeListen) TopArtists(ctx context.Context, username string, limit int) ([]string, error) {
	return f.top, f.topErr
}

type stubSettings struct {
	batch int
}

func (s stubSettings) Get() config.Settings {
	return config.Settings{BatchSize: s.batch, OpenAIMaxSeedArtists: 5}
}

type testEnv struct {
	engine  *Engine
	emitter *recordingEmitter
	library *fakeLibrary
	similar *fakeSimilarity
	enrich  *fakeEnrich
	seeder  *fakeSeeder
	listen  *fakeListen
	catalog *catalog.Cache
}

func newTestEnv(batch int) *testEnv {
	env := &testEnv{
		emitter: &recordingEmitter{},
		library: &fakeLibrary{artists: []string{"A", "B"}, outcome: AddOutcomeAdded},
		similar: &fakeSimilarity{related: map[string][]SimilarArtist{}},
		enrich:  &fakeEnrich{},
		seeder:  &fakeSeeder{},
		listen:  &fakeListen{configured: true},
		catalog: catalog.New(),
	}
	env.engine = NewEngine(EngineParams{
		Store:    NewStore(),
		Catalog:  env.catalog,
		Emitter:  env.emitter,
		Library:  env.library,
		Similar:  env.similar,
		Enrich:   env.enrich,
		Images:   fakeImages{},
		Resolver: &fakeResolver{id: "mbid-1"},
		Seeder:   env.seeder,
		Listen:   env.listen,
		Settings: stubSettings{batch: batch},
	})
	return env
}

const conn = "conn-1"

func TestStartStreamsWindowsInOrder(t *testing.T) {
	env := newTestEnv(1)
	env.similar.related["A"] = []SimilarArtist{
		{Name: "C", Match: score(0.9)},
		{Name: "B", Match: score(0.95)}, // already in library, filtered
		{Name: "D", Match: nil},
	}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})

	if env.emitter.count(EventClear) != 1 {
		t.Fatal("expected a clear event before the first window")
	}
	if got := env.emitter.loadedNames(); len(got) != 1 || got[0] != "C" {
		t.Fatalf("first window = %v, want [C]", got)
	}
	initial := env.emitter.all(EventInitialLoadComplete)
	if len(initial) != 1 {
		t.Fatalf("initial_load_complete count = %d, want 1", len(initial))
	}
	if !initial[0].payload.(BatchComplete).HasMore {
		t.Error("first window should report more results available")
	}
	card := env.emitter.all(EventArtistsLoaded)[0].payload.([]Card)[0]
	if card.Similarity != "90% match" {
		t.Errorf("similarity label = %q, want %q", card.Similarity, "90% match")
	}
	if card.Genre != "rock" || card.Popularity != "3.4M" || card.Followers != "1.2K" {
		t.Errorf("enriched card = %+v", card)
	}

	env.engine.LoadMore(ctx, conn)

	if got := env.emitter.loadedNames(); len(got) != 2 || got[1] != "D" {
		t.Fatalf("streamed names = %v, want [C D]", got)
	}
	second := env.emitter.all(EventArtistsLoaded)[1].payload.([]Card)[0]
	if second.SimilarityScore != nil || second.Similarity != "" {
		t.Errorf("card without provider score should carry none, got %+v", second)
	}
	more := env.emitter.all(EventLoadMoreComplete)
	if len(more) != 1 || more[0].payload.(BatchComplete).HasMore {
		t.Fatalf("load_more_complete = %+v, want one event with hasMore=false", more)
	}

	// Past the end of the candidate list: no results, just the notice.
	env.engine.LoadMore(ctx, conn)
	if got := env.emitter.loadedNames(); len(got) != 2 {
		t.Errorf("exhausted request_more streamed cards: %v", got)
	}
	if env.emitter.count(EventToast) == 0 {
		t.Error("expected a toast reporting exhaustion")
	}
}

func TestStartWithNoSelection(t *testing.T) {
	env := newTestEnv(5)

	env.engine.Start(context.Background(), conn, nil)

	if env.emitter.count(EventArtistsLoaded) != 0 {
		t.Error("no selection must stream no cards")
	}
	if env.emitter.count(EventToast) != 1 {
		t.Error("expected a toast asking for a selection")
	}
	if env.emitter.count(EventClear) != 0 {
		t.Error("a rejected start must not clear existing results")
	}
}

func TestStopMidWindowSuppressesCompletion(t *testing.T) {
	env := newTestEnv(5)
	env.similar.related["A"] = []SimilarArtist{
		{Name: "C", Match: score(0.9)},
		{Name: "D", Match: score(0.8)},
	}
	env.enrich.onDescribe = func(string) {
		env.engine.Stop(conn)
	}

	env.engine.Start(context.Background(), conn, []string{"A"})

	if n := env.emitter.count(EventArtistsLoaded); n != 0 {
		t.Errorf("cards streamed after stop = %d, want 0", n)
	}
	if env.emitter.count(EventInitialLoadComplete) != 0 {
		t.Error("a stopped run must not emit a completion event")
	}
}

func TestLoadMoreAfterStopIgnored(t *testing.T) {
	env := newTestEnv(1)
	env.similar.related["A"] = []SimilarArtist{
		{Name: "C", Match: score(0.9)},
		{Name: "D", Match: score(0.8)},
	}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})
	env.engine.Stop(conn)
	before := env.emitter.count(EventArtistsLoaded)

	env.engine.LoadMore(ctx, conn)

	if env.emitter.count(EventArtistsLoaded) != before {
		t.Error("request_more after stop must not stream cards")
	}
	if env.emitter.count(EventLoadMoreComplete) != 0 {
		t.Error("request_more after stop must not emit a completion event")
	}
}

func TestLoadMoreBeforeStartIgnored(t *testing.T) {
	env := newTestEnv(1)

	env.engine.LoadMore(context.Background(), conn)

	if len(env.emitter.all(EventLoadMoreComplete)) != 0 || env.emitter.count(EventToast) != 0 {
		t.Error("request_more before any run must be a no-op")
	}
}

func TestStartDiscardsPreviousRun(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{{Name: "C", Match: score(0.9)}}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})
	env.engine.Stop(conn)

	env.similar.related["A"] = []SimilarArtist{{Name: "E", Match: score(0.7)}}
	env.engine.Start(ctx, conn, []string{"A"})

	s, ok := env.engine.Store().Get(conn)
	if !ok {
		t.Fatal("session missing")
	}
	results := s.Results()
	if len(results) != 1 || results[0].Name != "E" {
		t.Fatalf("retained results = %+v, want only the new run's card", results)
	}
	if env.emitter.count(EventClear) != 2 {
		t.Errorf("clear count = %d, want one per accepted start", env.emitter.count(EventClear))
	}
}

func TestRestartWhileWindowInFlightKeepsRunsIsolated(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{
		{Name: "Old1", Match: score(0.9)},
		{Name: "Old2", Match: score(0.8)},
	}
	env.similar.related["B"] = []SimilarArtist{{Name: "New1", Match: score(0.7)}}
	ctx := context.Background()

	blocked := make(chan struct{})
	release := make(chan struct{})
	env.enrich.onDescribe = func(name string) {
		if name == "Old1" {
			close(blocked)
			<-release
		}
	}

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		env.engine.Start(ctx, conn, []string{"A"})
	}()
	<-blocked

	// Stop the first run while its window is parked inside enrichment, then
	// start a second run. The second run must wait for the first window to
	// drain; the drained window must not leak into the new run's state.
	env.engine.Stop(conn)
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		env.engine.Start(ctx, conn, []string{"B"})
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	<-firstDone
	<-secondDone

	s, ok := env.engine.Store().Get(conn)
	if !ok {
		t.Fatal("session missing")
	}
	results := s.Results()
	if len(results) != 1 || results[0].Name != "New1" {
		t.Fatalf("retained results = %+v, want only the second run's card", results)
	}
	for _, name := range env.emitter.loadedNames() {
		if name == "Old1" || name == "Old2" {
			t.Fatalf("stale window streamed %q after the run was replaced", name)
		}
	}
}

func TestAdvanceSkipsCandidatesThatFailEnrichment(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{
		{Name: "C", Match: score(0.9)},
		{Name: "D", Match: score(0.8)},
	}
	env.enrich.errs = map[string]error{"C": errors.New("provider timeout")}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})

	if got := env.emitter.loadedNames(); len(got) != 1 || got[0] != "D" {
		t.Fatalf("streamed names = %v, want [D] with the failed candidate dropped", got)
	}
	initial := env.emitter.all(EventInitialLoadComplete)
	if len(initial) != 1 || initial[0].payload.(BatchComplete).HasMore {
		t.Fatalf("initial_load_complete = %+v, want one event with hasMore=false", initial)
	}

	// The skipped candidate consumed its cursor slot: the run is exhausted,
	// not waiting to retry it.
	env.engine.LoadMore(ctx, conn)
	if got := env.emitter.loadedNames(); len(got) != 1 {
		t.Errorf("request_more after skip streamed %v, want no new cards", got)
	}
	if env.emitter.count(EventToast) != 1 {
		t.Error("expected the exhaustion notice")
	}
}

func TestLoadMoreAfterStopOnExhaustedRunStaysSilent(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{{Name: "C", Match: score(0.9)}}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})

	// Natural exhaustion keeps answering request_more with the notice.
	env.engine.LoadMore(ctx, conn)
	if env.emitter.count(EventToast) != 1 {
		t.Fatal("expected the exhaustion notice before the stop")
	}

	env.engine.Stop(conn)
	env.engine.LoadMore(ctx, conn)

	if env.emitter.count(EventToast) != 1 {
		t.Error("request_more after an explicit stop must not toast")
	}
	if env.emitter.count(EventLoadMoreComplete) != 0 {
		t.Error("request_more after an explicit stop must not emit a completion event")
	}
}

func TestConnectReplaysSessionState(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{{Name: "C", Match: score(0.9)}}
	ctx := context.Background()

	env.engine.Connect(conn, 7, true, "")
	env.engine.Start(ctx, conn, []string{"A"})
	before := env.emitter.count(EventArtistsLoaded)

	env.engine.Connect(conn, 7, true, "")

	replays := env.emitter.all(EventArtistsLoaded)
	if len(replays) != before+1 {
		t.Fatalf("artists_loaded count = %d, want %d (one replay batch)", len(replays), before+1)
	}
	replayed := replays[len(replays)-1].payload.([]Card)
	if len(replayed) != 1 || replayed[0].Name != "C" {
		t.Errorf("replayed cards = %+v, want the run's single card", replayed)
	}
	info := env.emitter.all(EventUserInfo)
	if len(info) != 2 || !info[1].payload.(UserInfo).IsAdmin {
		t.Error("connect should announce the admin flag each time")
	}
}

func TestFetchCatalogErrorLeavesSidebarUsable(t *testing.T) {
	env := newTestEnv(5)
	env.library.listErr = errors.New("connection refused")

	env.engine.FetchCatalog(context.Background(), conn, false)

	updates := env.emitter.all(EventLibraryUpdate)
	if len(updates) != 1 {
		t.Fatalf("library_update count = %d, want 1", len(updates))
	}
	lu := updates[0].payload.(LibraryUpdate)
	if lu.Status != "error" || lu.Code != 502 {
		t.Errorf("library_update = %+v, want status=error code=502", lu)
	}
}

func TestAddArtistRecordsOutcome(t *testing.T) {
	env := newTestEnv(10)
	env.similar.related["A"] = []SimilarArtist{{Name: "C", Match: score(0.9)}}
	ctx := context.Background()

	env.engine.Start(ctx, conn, []string{"A"})
	env.engine.AddArtist(ctx, conn, "C")

	status := env.emitter.all(EventArtistStatus)
	if len(status) != 1 {
		t.Fatalf("artist_status count = %d, want 1", len(status))
	}
	card := status[0].payload.(Card)
	if card.Name != "C" || card.Status != string(AddOutcomeAdded) {
		t.Errorf("status card = %+v, want C marked Added", card)
	}
	if len(env.library.added) != 1 || env.library.added[0] != "C/mbid-1" {
		t.Errorf("library add calls = %v, want [C/mbid-1]", env.library.added)
	}
	if _, ok := env.catalog.Keys()["c"]; !ok {
		t.Error("a successful add must land in the shared catalog")
	}
}

func TestAddArtistWithoutIdentityMatch(t *testing.T) {
	env := newTestEnv(10)
	env.engine = NewEngine(EngineParams{
		Store:    NewStore(),
		Catalog:  env.catalog,
		Emitter:  env.emitter,
		Library:  env.library,
		Similar:  env.similar,
		Enrich:   env.enrich,
		Images:   fakeImages{},
		Resolver: &fakeResolver{id: ""},
		Seeder:   env.seeder,
		Listen:   env.listen,
		Settings: stubSettings{batch: 10},
	})

	env.engine.AddArtist(context.Background(), conn, "Nobody")

	if len(env.library.added) != 0 {
		t.Error("an unresolved artist must not reach the library manager")
	}
	status := env.emitter.all(EventArtistStatus)
	if len(status) != 1 || status[0].payload.(Card).Status != string(AddOutcomeFailed) {
		t.Errorf("artist_status = %+v, want Failed to Add", status)
	}
	if env.emitter.count(EventToast) != 1 {
		t.Error("expected a no-match toast")
	}
}

func TestAIPromptStreamsSeeds(t *testing.T) {
	env := newTestEnv(5)
	env.seeder.seeds = []string{"X", "A"} // A already owned
	env.similar.related["X"] = []SimilarArtist{{Name: "Y", Match: score(0.5)}}
	ctx := context.Background()

	env.engine.AIPrompt(ctx, conn, "dreamy shoegaze for rainy days")

	acks := env.emitter.all(EventAIPromptAck)
	if len(acks) != 1 {
		t.Fatalf("ai_prompt_ack count = %d, want 1", len(acks))
	}
	ack := acks[0].payload.(SeedAck)
	if len(ack.Seeds) != 1 || ack.Seeds[0] != "X" {
		t.Errorf("ack seeds = %v, want [X]", ack.Seeds)
	}
	if len(ack.Skipped) != 1 || ack.Skipped[0] != "A" {
		t.Errorf("ack skipped = %v, want [A]", ack.Skipped)
	}
	if got := env.emitter.loadedNames(); len(got) != 1 || got[0] != "X" {
		t.Fatalf("streamed seeds = %v, want [X]", got)
	}
	initial := env.emitter.all(EventInitialLoadComplete)
	if len(initial) != 1 || !initial[0].payload.(BatchComplete).HasMore {
		t.Fatalf("initial_load_complete = %+v, want hasMore=true from X's similars", initial)
	}

	// request_more now pulls from the seeds' similar artists.
	env.engine.LoadMore(ctx, conn)
	if got := env.emitter.loadedNames(); len(got) != 2 || got[1] != "Y" {
		t.Fatalf("after request_more names = %v, want [X Y]", got)
	}
}

func TestAIPromptWithoutKey(t *testing.T) {
	env := newTestEnv(5)
	env.seeder.err = ErrNotConfigured

	env.engine.AIPrompt(context.Background(), conn, "anything")

	errs := env.emitter.all(EventAIPromptError)
	if len(errs) != 1 {
		t.Fatalf("ai_prompt_error count = %d, want 1", len(errs))
	}
	if msg := errs[0].payload.(ErrorMessage).Message; msg == "" {
		t.Error("error message should tell the user to configure a key")
	}
}

func TestAIPromptEmptyPrompt(t *testing.T) {
	env := newTestEnv(5)

	env.engine.AIPrompt(context.Background(), conn, "   ")

	if env.emitter.count(EventAIPromptError) != 1 {
		t.Error("blank prompt should be rejected")
	}
	if env.emitter.count(EventAIPromptAck) != 0 {
		t.Error("blank prompt must not be acknowledged")
	}
}

func TestPersonalRecsFallsBackToTopArtists(t *testing.T) {
	env := newTestEnv(5)
	env.listen.recs = nil // provider has no recommendations for this account
	env.listen.top = []string{"Z"}
	env.similar.related["Z"] = []SimilarArtist{{Name: "W", Match: score(0.4)}}

	env.engine.PersonalRecs(context.Background(), conn, "lastfm", "listener42")

	acks := env.emitter.all(EventUserRecsAck)
	if len(acks) != 1 {
		t.Fatalf("user_recs_ack count = %d, want 1", len(acks))
	}
	ack := acks[0].payload.(SeedAck)
	if ack.Username != "listener42" || len(ack.Seeds) != 1 || ack.Seeds[0] != "Z" {
		t.Errorf("ack = %+v, want Z for listener42", ack)
	}
	if got := env.emitter.loadedNames(); len(got) != 1 || got[0] != "Z" {
		t.Fatalf("streamed seeds = %v, want [Z]", got)
	}
}

func TestPersonalRecsRequiresUsername(t *testing.T) {
	env := newTestEnv(5)

	env.engine.PersonalRecs(context.Background(), conn, "lastfm", "")

	if env.emitter.count(EventUserRecsError) != 1 {
		t.Error("missing username should produce an error event")
	}
	if env.emitter.count(EventUserRecsAck) != 0 {
		t.Error("missing username must not be acknowledged")
	}
}

func TestPersonalSourcesState(t *testing.T) {
	tests := []struct {
		name        string
		configured  bool
		username    string
		wantEnabled bool
	}{
		{"ready", true, "listener42", true},
		{"no key", false, "listener42", false},
		{"no username", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(5)
			env.listen.configured = tt.configured

			env.engine.EmitPersonalSources(conn, tt.username)

			events := env.emitter.all(EventPersonalSources)
			if len(events) != 1 {
				t.Fatalf("personal_sources_state count = %d, want 1", len(events))
			}
			state := events[0].payload.(PersonalSourcesState).LastFM
			if state.Enabled != tt.wantEnabled {
				t.Errorf("enabled = %v, want %v (reason %q)", state.Enabled, tt.wantEnabled, state.Reason)
			}
			if !state.Enabled && state.Reason == "" {
				t.Error("a disabled source should explain why")
			}
		})
	}
}
