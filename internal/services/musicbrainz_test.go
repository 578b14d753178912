package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resonarr/backend/internal/config"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  int
		max  int
	}{
		{"Slowdive", "Slowdive", 100, 100},
		{"Slowdive", "slowdive", 100, 100},
		{"Björk", "Bjork", 100, 100},
		{"Slowdive", "Slowdive Band", 50, 70},
		{"Slowdive", "Mogwai", 0, 30},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.a, tt.b), func(t *testing.T) {
			got := nameSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("nameSimilarity(%q, %q) = %d, want within [%d,%d]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func musicBrainzWith(t *testing.T, body string, fallback bool) *MusicBrainzService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	svc := NewMusicBrainzService(stubSettings{s: config.Settings{FallbackToTopResult: fallback}}, "resonarr-test/1.0")
	svc.baseURL = srv.URL
	return svc
}

func TestResolveArtistIDFuzzyMatch(t *testing.T) {
	svc := musicBrainzWith(t, `{"artists":[
		{"id":"wrong","name":"Slowdive Tribute Ensemble"},
		{"id":"right","name":"slowdive"}
	]}`, false)

	got, err := svc.ResolveArtistID(context.Background(), "Slowdive")
	if err != nil {
		t.Fatalf("ResolveArtistID() error: %v", err)
	}
	if got != "right" {
		t.Errorf("id = %q, want the close-name match, not the top result", got)
	}
}

func TestResolveArtistIDNoCloseMatch(t *testing.T) {
	body := `{"artists":[{"id":"top","name":"Completely Different"}]}`

	svc := musicBrainzWith(t, body, false)
	got, err := svc.ResolveArtistID(context.Background(), "Slowdive")
	if err != nil || got != "" {
		t.Fatalf("without fallback: id = %q, err = %v; want empty", got, err)
	}

	svc = musicBrainzWith(t, body, true)
	got, err = svc.ResolveArtistID(context.Background(), "Slowdive")
	if err != nil || got != "top" {
		t.Fatalf("with fallback: id = %q, err = %v; want the top result", got, err)
	}
}

func TestResolveArtistIDEmptyResults(t *testing.T) {
	svc := musicBrainzWith(t, `{"artists":[]}`, true)

	got, err := svc.ResolveArtistID(context.Background(), "Nobody At All")
	if err != nil || got != "" {
		t.Fatalf("id = %q, err = %v; want empty even with fallback enabled", got, err)
	}
}
