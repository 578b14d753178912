package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/discovery"
)

func TestLidarrListArtists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/artist" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Error("missing API key header")
		}
		w.Write([]byte(`[{"artistName":"Low"},{"artistName":""},{"artistName":"Slowdive"}]`))
	}))
	defer srv.Close()

	svc := NewLidarrService(stubSettings{s: config.Settings{
		LidarrAddress:        srv.URL,
		LidarrAPIKey:         "secret",
		LidarrTimeoutSeconds: 5,
	}})

	got, err := svc.ListArtists(context.Background())
	if err != nil {
		t.Fatalf("ListArtists() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("artists = %v, want blank names dropped", got)
	}
}

func TestLidarrAddArtistOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   discovery.AddOutcome
	}{
		{"created", http.StatusCreated, `{}`, discovery.AddOutcomeAdded},
		{
			"duplicate",
			http.StatusBadRequest,
			`[{"errorMessage":"This artist has already been added"}]`,
			discovery.AddOutcomeAlreadyPresent,
		},
		{
			"existing path",
			http.StatusBadRequest,
			`[{"errorMessage":"Path is configured for an existing artist"}]`,
			discovery.AddOutcomeAlreadyPresent,
		},
		{
			"bad root folder",
			http.StatusBadRequest,
			`[{"errorMessage":"Invalid Path: /nope"}]`,
			discovery.AddOutcomeInvalidPath,
		},
		{"opaque failure", http.StatusInternalServerError, `boom`, discovery.AddOutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewLidarrService(stubSettings{s: config.Settings{
				LidarrAddress:        srv.URL,
				LidarrAPIKey:         "secret",
				LidarrTimeoutSeconds: 5,
				RootFolderPath:       "/music",
				QualityProfileID:     1,
				MetadataProfileID:    1,
			}})

			got, err := svc.AddArtist(context.Background(), "Slowdive", "mbid-1")
			if err != nil {
				t.Fatalf("AddArtist() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("outcome = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLidarrDryRunSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not call the library manager")
	}))
	defer srv.Close()

	svc := NewLidarrService(stubSettings{s: config.Settings{
		LidarrAddress: srv.URL,
		DryRunAdding:  true,
	}})

	got, err := svc.AddArtist(context.Background(), "Slowdive", "mbid-1")
	if err != nil || got != discovery.AddOutcomeAdded {
		t.Fatalf("AddArtist() = %q, %v; want Added with no request", got, err)
	}
}
