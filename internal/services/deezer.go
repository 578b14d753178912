package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultDeezerBaseURL = "https://api.deezer.com"

// DeezerService looks up artist images. Deezer's search endpoint needs no API
// key, which makes it the zero-configuration image source for result cards.
type DeezerService struct {
	httpClient *http.Client
	baseURL    string
}

func NewDeezerService() *DeezerService {
	return &DeezerService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultDeezerBaseURL,
	}
}

type deezerSearchResponse struct {
	Data []struct {
		Name          string `json:"name"`
		PictureXL     string `json:"picture_xl"`
		PictureBig    string `json:"picture_big"`
		PictureMedium string `json:"picture_medium"`
		Picture       string `json:"picture"`
	} `json:"data"`
}

// ArtistImage returns the largest available image URL for the artist, or an
// empty string when Deezer has no match.
func (s *DeezerService) ArtistImage(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/search/artist?q=%s&limit=1", s.baseURL, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deezer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deezer request failed with status %d", resp.StatusCode)
	}

	var search deezerSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", fmt.Errorf("failed to decode deezer response: %w", err)
	}
	if len(search.Data) == 0 {
		return "", nil
	}

	hit := search.Data[0]
	for _, candidate := range []string{hit.PictureXL, hit.PictureBig, hit.PictureMedium, hit.Picture} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}
