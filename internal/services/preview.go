package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resonarr/backend/internal/normalize"
)

const (
	defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultITunesBaseURL  = "https://itunes.apple.com"
)

// PreviewService finds something to listen to for a discovered artist before
// committing them to the library. YouTube is preferred when a key is
// configured; the iTunes search API is the keyless fallback.
type PreviewService struct {
	settings    SettingsSource
	httpClient  *http.Client
	youtubeBase string
	itunesBase  string
}

// Preview is one playable sample for an artist.
type Preview struct {
	Source string `json:"source"` // "youtube" or "itunes"
	Title  string `json:"title"`
	URL    string `json:"url"`
}

func NewPreviewService(settings SettingsSource) *PreviewService {
	return &PreviewService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		youtubeBase: defaultYouTubeBaseURL,
		itunesBase:  defaultITunesBaseURL,
	}
}

// TrackPreview finds a playable sample for the artist, optionally biased
// toward a specific track name. Returns nil when nothing suitable exists.
func (s *PreviewService) TrackPreview(ctx context.Context, artist, track string) (*Preview, error) {
	if key := s.settings.Get().YouTubeAPIKey; key != "" {
		preview, err := s.youtubePreview(ctx, key, artist, track)
		if err == nil && preview != nil {
			return preview, nil
		}
		// Fall through to iTunes when YouTube fails or has no hit.
	}
	return s.itunesPreview(ctx, artist, track)
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func (s *PreviewService) youtubePreview(ctx context.Context, key, artist, track string) (*Preview, error) {
	query := artist
	if track != "" {
		query += " " + track
	}
	// videoCategoryId 10 restricts results to music.
	searchURL := fmt.Sprintf("%s/search?part=snippet&type=video&videoCategoryId=10&maxResults=1&q=%s&key=%s",
		s.youtubeBase, url.QueryEscape(query), url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube request failed with status %d", resp.StatusCode)
	}

	var search youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("failed to decode youtube response: %w", err)
	}
	if len(search.Items) == 0 || search.Items[0].ID.VideoID == "" {
		return nil, nil
	}

	item := search.Items[0]
	return &Preview{
		Source: "youtube",
		Title:  item.Snippet.Title,
		URL:    "https://www.youtube.com/watch?v=" + item.ID.VideoID,
	}, nil
}

type itunesSearchResponse struct {
	Results []struct {
		ArtistName string `json:"artistName"`
		TrackName  string `json:"trackName"`
		PreviewURL string `json:"previewUrl"`
	} `json:"results"`
}

func (s *PreviewService) itunesPreview(ctx context.Context, artist, track string) (*Preview, error) {
	term := artist
	if track != "" {
		term += " " + track
	}
	searchURL := fmt.Sprintf("%s/search?term=%s&media=music&entity=song&limit=5",
		s.itunesBase, url.QueryEscape(term))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("itunes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes request failed with status %d", resp.StatusCode)
	}

	var search itunesSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("failed to decode itunes response: %w", err)
	}

	wantArtist := normalize.Key(artist)
	for _, hit := range search.Results {
		if hit.PreviewURL == "" {
			continue
		}
		// Prefer a result by the artist we asked about; iTunes search is loose.
		if strings.Contains(normalize.Key(hit.ArtistName), wantArtist) || wantArtist == "" {
			return &Preview{Source: "itunes", Title: hit.TrackName, URL: hit.PreviewURL}, nil
		}
	}
	if len(search.Results) > 0 && search.Results[0].PreviewURL != "" {
		first := search.Results[0]
		return &Preview{Source: "itunes", Title: first.TrackName, URL: first.PreviewURL}, nil
	}
	return nil, nil
}
