package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agnivade/levenshtein"
	"golang.org/x/time/rate"

	"github.com/resonarr/backend/internal/normalize"
)

const defaultMusicBrainzBaseURL = "https://musicbrainz.org/ws/2"

// matchThreshold is the minimum name similarity, in percent, for a search
// result to count as the artist we asked about.
const matchThreshold = 90

// MusicBrainzService resolves artist names to MusicBrainz IDs, the canonical
// identifier the library manager indexes by. MusicBrainz allows one request
// per second per client, enforced here so concurrent sessions share the
// budget.
type MusicBrainzService struct {
	settings   SettingsSource
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
}

func NewMusicBrainzService(settings SettingsSource, userAgent string) *MusicBrainzService {
	return &MusicBrainzService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL:   defaultMusicBrainzBaseURL,
		userAgent: userAgent,
	}
}

type musicBrainzSearchResponse struct {
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

// ResolveArtistID searches MusicBrainz for the artist and returns the ID of
// the first result whose name is a close fuzzy match. With fallback enabled
// in settings, a search that finds results but no close match resolves to the
// top result instead of nothing.
func (s *MusicBrainzService) ResolveArtistID(ctx context.Context, name string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := url.Values{
		"query": {fmt.Sprintf("artist:%q", name)},
		"fmt":   {"json"},
		"limit": {"5"},
	}
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/artist?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("musicbrainz request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("musicbrainz request failed with status %d", resp.StatusCode)
	}

	var search musicBrainzSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", fmt.Errorf("failed to decode musicbrainz response: %w", err)
	}
	if len(search.Artists) == 0 {
		return "", nil
	}

	for _, artist := range search.Artists {
		if nameSimilarity(name, artist.Name) >= matchThreshold {
			return artist.ID, nil
		}
	}
	if s.settings.Get().FallbackToTopResult {
		return search.Artists[0].ID, nil
	}
	return "", nil
}

// nameSimilarity scores two artist names in percent, ignoring case and
// diacritics.
func nameSimilarity(a, b string) int {
	a = normalize.Key(a)
	b = normalize.Key(b)
	if a == b {
		return 100
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}
