package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resonarr/backend/internal/discovery"
)

// LidarrService is the library manager client: it supplies the owned-artist
// catalog and receives add requests. Address and credentials come from the
// runtime settings so admins can repoint it without a restart.
type LidarrService struct {
	settings   SettingsSource
	httpClient *http.Client
}

func NewLidarrService(settings SettingsSource) *LidarrService {
	return &LidarrService{
		settings: settings,
		// Per-request deadlines come from the configured timeout.
		httpClient: &http.Client{},
	}
}

type lidarrArtist struct {
	ArtistName string `json:"artistName"`
}

// ListArtists fetches every artist currently in the library.
func (s *LidarrService) ListArtists(ctx context.Context) ([]string, error) {
	cfg := s.settings.Get()
	ctx, cancel := context.WithTimeout(ctx, lidarrTimeout(cfg.LidarrTimeoutSeconds))
	defer cancel()

	endpoint := strings.TrimRight(cfg.LidarrAddress, "/") + "/api/v1/artist"
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", cfg.LidarrAPIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lidarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("lidarr request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var artists []lidarrArtist
	if err := json.NewDecoder(resp.Body).Decode(&artists); err != nil {
		return nil, fmt.Errorf("failed to decode lidarr response: %w", err)
	}

	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.ArtistName != "" {
			names = append(names, a.ArtistName)
		}
	}
	return names, nil
}

type lidarrAddRequest struct {
	ArtistName      string           `json:"artistName"`
	ForeignArtistID string           `json:"foreignArtistId"`
	QualityProfile  int              `json:"qualityProfileId"`
	MetadataProfile int              `json:"metadataProfileId"`
	RootFolderPath  string           `json:"rootFolderPath"`
	Monitored       bool             `json:"monitored"`
	AddOptions      lidarrAddOptions `json:"addOptions"`
}

type lidarrAddOptions struct {
	SearchForMissingAlbums bool `json:"searchForMissingAlbums"`
}

type lidarrAddError struct {
	ErrorMessage string `json:"errorMessage"`
}

// AddArtist submits one artist to the library manager and classifies the
// response. A non-2xx answer the API explains (duplicate, bad root folder) is
// an outcome, not an error; errors are reserved for not getting an answer at
// all. With dry-run enabled in settings the request is skipped and reported
// as added.
func (s *LidarrService) AddArtist(ctx context.Context, name, foreignID string) (discovery.AddOutcome, error) {
	cfg := s.settings.Get()
	if cfg.DryRunAdding {
		return discovery.AddOutcomeAdded, nil
	}

	ctx, cancel := context.WithTimeout(ctx, lidarrTimeout(cfg.LidarrTimeoutSeconds))
	defer cancel()

	payload, err := json.Marshal(lidarrAddRequest{
		ArtistName:      name,
		ForeignArtistID: foreignID,
		QualityProfile:  cfg.QualityProfileID,
		MetadataProfile: cfg.MetadataProfileID,
		RootFolderPath:  cfg.RootFolderPath,
		Monitored:       true,
		AddOptions:      lidarrAddOptions{SearchForMissingAlbums: cfg.SearchForMissingAlbums},
	})
	if err != nil {
		return discovery.AddOutcomeFailed, fmt.Errorf("failed to encode add request: %w", err)
	}

	endpoint := strings.TrimRight(cfg.LidarrAddress, "/") + "/api/v1/artist"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return discovery.AddOutcomeFailed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", cfg.LidarrAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return discovery.AddOutcomeFailed, fmt.Errorf("lidarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		return discovery.AddOutcomeAdded, nil
	}

	body, _ := io.ReadAll(resp.Body)
	return classifyAddFailure(body), nil
}

// classifyAddFailure maps the API's validation messages onto outcomes the
// cards can show.
func classifyAddFailure(body []byte) discovery.AddOutcome {
	var errs []lidarrAddError
	if err := json.Unmarshal(body, &errs); err != nil {
		var single lidarrAddError
		if err := json.Unmarshal(body, &single); err == nil && single.ErrorMessage != "" {
			errs = []lidarrAddError{single}
		}
	}

	for _, e := range errs {
		msg := strings.ToLower(e.ErrorMessage)
		switch {
		case strings.Contains(msg, "already been added"),
			strings.Contains(msg, "configured for an existing artist"):
			return discovery.AddOutcomeAlreadyPresent
		case strings.Contains(msg, "invalid path"):
			return discovery.AddOutcomeInvalidPath
		}
	}
	return discovery.AddOutcomeFailed
}

func lidarrTimeout(seconds float64) time.Duration {
	if seconds <= 0 {
		seconds = 120
	}
	return time.Duration(seconds * float64(time.Second))
}
