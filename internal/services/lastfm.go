package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/discovery"
)

const defaultLastFMBaseURL = "https://ws.audioscrobbler.com/2.0/"

// similarArtistLimit is how many related artists one seed may contribute.
const similarArtistLimit = 250

// SettingsSource hands out the current runtime settings snapshot.
type SettingsSource interface {
	Get() config.Settings
}

// LastFMService talks to the Last.fm web API. It backs both the similarity
// expansion and the enrichment of result cards, plus the personal listening
// profile seeds.
type LastFMService struct {
	settings   SettingsSource
	httpClient *http.Client
	baseURL    string
}

func NewLastFMService(settings SettingsSource) *LastFMService {
	return &LastFMService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: defaultLastFMBaseURL,
	}
}

// Configured reports whether an API key is available.
func (s *LastFMService) Configured() bool {
	return s.settings.Get().LastFMAPIKey != ""
}

type lastFMError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

type lastFMSimilarResponse struct {
	SimilarArtists struct {
		Artist []struct {
			Name  string `json:"name"`
			Match string `json:"match"`
		} `json:"artist"`
	} `json:"similarartists"`
}

// Similar returns the artists Last.fm considers related to the given one,
// with the provider's match score where it supplies one.
func (s *LastFMService) Similar(ctx context.Context, artist string) ([]discovery.SimilarArtist, error) {
	var resp lastFMSimilarResponse
	err := s.call(ctx, url.Values{
		"method":      {"artist.getsimilar"},
		"artist":      {artist},
		"autocorrect": {"1"},
		"limit":       {strconv.Itoa(similarArtistLimit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]discovery.SimilarArtist, 0, len(resp.SimilarArtists.Artist))
	for _, a := range resp.SimilarArtists.Artist {
		rel := discovery.SimilarArtist{Name: a.Name}
		if v, err := strconv.ParseFloat(a.Match, 64); err == nil {
			rel.Match = &v
		}
		out = append(out, rel)
	}
	return out, nil
}

type lastFMInfoResponse struct {
	Artist struct {
		Name string `json:"name"`
		Tags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
		Stats struct {
			Listeners string `json:"listeners"`
			PlayCount string `json:"playcount"`
		} `json:"stats"`
		Bio struct {
			Summary string `json:"summary"`
		} `json:"bio"`
	} `json:"artist"`
}

// Describe fetches the tags and listening stats for one artist.
func (s *LastFMService) Describe(ctx context.Context, artist string) (discovery.Description, error) {
	var resp lastFMInfoResponse
	err := s.call(ctx, url.Values{
		"method":      {"artist.getinfo"},
		"artist":      {artist},
		"autocorrect": {"1"},
	}, &resp)
	if err != nil {
		return discovery.Description{}, err
	}

	desc := discovery.Description{}
	for _, tag := range resp.Artist.Tags.Tag {
		desc.Tags = append(desc.Tags, tag.Name)
	}
	// Stats come back as strings; a missing or malformed count stays zero.
	if v, err := strconv.ParseInt(resp.Artist.Stats.Listeners, 10, 64); err == nil {
		desc.Listeners = v
	}
	if v, err := strconv.ParseInt(resp.Artist.Stats.PlayCount, 10, 64); err == nil {
		desc.PlayCount = v
	}
	return desc, nil
}

// ArtistBio returns the artist's short biography, without the trailing
// "read more" link Last.fm appends to the summary.
func (s *LastFMService) ArtistBio(ctx context.Context, artist string) (string, error) {
	var resp lastFMInfoResponse
	err := s.call(ctx, url.Values{
		"method":      {"artist.getinfo"},
		"artist":      {artist},
		"autocorrect": {"1"},
	}, &resp)
	if err != nil {
		return "", err
	}

	summary := resp.Artist.Bio.Summary
	if idx := strings.Index(summary, "<a href="); idx != -1 {
		summary = summary[:idx]
	}
	return strings.TrimSpace(summary), nil
}

type lastFMTopTracksResponse struct {
	TopTracks struct {
		Track []struct {
			Name string `json:"name"`
		} `json:"track"`
	} `json:"toptracks"`
}

// TopTracks returns the artist's most played track names, used to steer the
// prehear search towards something recognizable.
func (s *LastFMService) TopTracks(ctx context.Context, artist string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	var resp lastFMTopTracksResponse
	err := s.call(ctx, url.Values{
		"method":      {"artist.gettoptracks"},
		"artist":      {artist},
		"autocorrect": {"1"},
		"limit":       {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.TopTracks.Track))
	for _, t := range resp.TopTracks.Track {
		names = append(names, t.Name)
	}
	return names, nil
}

type lastFMTopArtistsResponse struct {
	TopArtists struct {
		Artist []struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"topartists"`
}

// TopArtists returns the user's all-time most played artists.
func (s *LastFMService) TopArtists(ctx context.Context, username string, limit int) ([]string, error) {
	return s.userArtists(ctx, username, "overall", limit)
}

// RecommendedArtists returns seeds from the user's recent listening. The
// one-month window keeps the seeds closer to what the user is into right now
// than the all-time chart.
func (s *LastFMService) RecommendedArtists(ctx context.Context, username string, limit int) ([]string, error) {
	return s.userArtists(ctx, username, "1month", limit)
}

func (s *LastFMService) userArtists(ctx context.Context, username, period string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp lastFMTopArtistsResponse
	err := s.call(ctx, url.Values{
		"method": {"user.gettopartists"},
		"user":   {username},
		"period": {period},
		"limit":  {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.TopArtists.Artist))
	for _, a := range resp.TopArtists.Artist {
		names = append(names, a.Name)
	}
	return names, nil
}

// call performs one Last.fm API method call and decodes the response into
// out. Last.fm reports errors in a 200 body, so the payload is checked for an
// error envelope before decoding.
func (s *LastFMService) call(ctx context.Context, params url.Values, out any) error {
	key := s.settings.Get().LastFMAPIKey
	if key == "" {
		return discovery.ErrNotConfigured
	}
	params.Set("api_key", key)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lastfm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read lastfm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lastfm request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiErr lastFMError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return fmt.Errorf("lastfm error %d: %s", apiErr.Code, apiErr.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode lastfm response: %w", err)
	}
	return nil
}
