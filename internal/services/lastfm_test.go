package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resonarr/backend/internal/config"
)

type stubSettings struct {
	s config.Settings
}

func (s stubSettings) Get() config.Settings { return s.s }

func lastFMWith(t *testing.T, handler http.HandlerFunc, cfg config.Settings) *LastFMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc := NewLastFMService(stubSettings{s: cfg})
	svc.baseURL = srv.URL + "/"
	return svc
}

func TestLastFMSimilarParsesScores(t *testing.T) {
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("method"); got != "artist.getsimilar" {
			t.Errorf("method = %q", got)
		}
		w.Write([]byte(`{"similarartists":{"artist":[
			{"name":"Slowdive","match":"0.95"},
			{"name":"Ride","match":"not-a-number"}
		]}}`))
	}, config.Settings{LastFMAPIKey: "key"})

	got, err := svc.Similar(context.Background(), "My Bloody Valentine")
	if err != nil {
		t.Fatalf("Similar() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].Match == nil || *got[0].Match != 0.95 {
		t.Errorf("first match = %v, want 0.95", got[0].Match)
	}
	if got[1].Match != nil {
		t.Error("unparseable match must come back as no score")
	}
}

func TestLastFMErrorEnvelope(t *testing.T) {
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		// Last.fm reports errors with a 200 status.
		w.Write([]byte(`{"error":6,"message":"The artist you supplied could not be found"}`))
	}, config.Settings{LastFMAPIKey: "key"})

	if _, err := svc.Similar(context.Background(), "nobody"); err == nil {
		t.Fatal("expected error from the API error envelope")
	}
}

func TestLastFMRequiresKey(t *testing.T) {
	svc := NewLastFMService(stubSettings{})
	if svc.Configured() {
		t.Error("Configured() without a key = true")
	}
	if _, err := svc.Similar(context.Background(), "anyone"); err == nil {
		t.Fatal("expected ErrNotConfigured without an API key")
	}
}

func TestLastFMDescribe(t *testing.T) {
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artist":{
			"name":"Slowdive",
			"tags":{"tag":[{"name":"shoegaze"},{"name":"dream pop"}]},
			"stats":{"listeners":"1200","playcount":"3400000"}
		}}`))
	}, config.Settings{LastFMAPIKey: "key"})

	desc, err := svc.Describe(context.Background(), "Slowdive")
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	if len(desc.Tags) != 2 || desc.Tags[0] != "shoegaze" {
		t.Errorf("tags = %v", desc.Tags)
	}
	if desc.Listeners != 1200 || desc.PlayCount != 3_400_000 {
		t.Errorf("stats = %d/%d", desc.Listeners, desc.PlayCount)
	}
}

func TestLastFMArtistBioStripsReadMoreLink(t *testing.T) {
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artist":{
			"name":"Slowdive",
			"bio":{"summary":"Slowdive are an English rock band. <a href=\"https://www.last.fm/music/Slowdive\">Read more on Last.fm</a>"}
		}}`))
	}, config.Settings{LastFMAPIKey: "key"})

	bio, err := svc.ArtistBio(context.Background(), "Slowdive")
	if err != nil {
		t.Fatalf("ArtistBio() error: %v", err)
	}
	if bio != "Slowdive are an English rock band." {
		t.Errorf("bio = %q", bio)
	}
}

func TestLastFMTopTracks(t *testing.T) {
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("method"); got != "artist.gettoptracks" {
			t.Errorf("method = %q", got)
		}
		w.Write([]byte(`{"toptracks":{"track":[{"name":"Alison"},{"name":"When the Sun Hits"}]}}`))
	}, config.Settings{LastFMAPIKey: "key"})

	tracks, err := svc.TopTracks(context.Background(), "Slowdive", 2)
	if err != nil {
		t.Fatalf("TopTracks() error: %v", err)
	}
	if len(tracks) != 2 || tracks[0] != "Alison" {
		t.Errorf("tracks = %v", tracks)
	}
}

func TestLastFMUserArtists(t *testing.T) {
	var periods []string
	svc := lastFMWith(t, func(w http.ResponseWriter, r *http.Request) {
		periods = append(periods, r.URL.Query().Get("period"))
		w.Write([]byte(`{"topartists":{"artist":[{"name":"Boards of Canada"}]}}`))
	}, config.Settings{LastFMAPIKey: "key"})

	recent, err := svc.RecommendedArtists(context.Background(), "listener42", 10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("RecommendedArtists() = %v, %v", recent, err)
	}
	if _, err := svc.TopArtists(context.Background(), "listener42", 10); err != nil {
		t.Fatal(err)
	}
	if len(periods) != 2 || periods[0] != "1month" || periods[1] != "overall" {
		t.Errorf("periods = %v, want recent then all-time", periods)
	}
}
