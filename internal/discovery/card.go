package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Card is one fully enriched discovery result as streamed to the client.
type Card struct {
	Name            string   `json:"name"`
	Genre           string   `json:"genre"`
	Status          string   `json:"status"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	Popularity      string   `json:"popularity"`
	Followers       string   `json:"followers"`
	SimilarityScore *float64 `json:"similarityScore,omitempty"`
	Similarity      string   `json:"similarity,omitempty"`
}

const maxGenreTags = 3

// buildCard enriches one candidate into a card. A failed description lookup
// fails the whole candidate; fields the provider leaves empty degrade to
// defaults, and a missing image only costs the image.
func (e *Engine) buildCard(ctx context.Context, name string, match *float64) (Card, error) {
	card := Card{Name: name, Genre: "Unknown Genre", Popularity: "0", Followers: "0"}
	if match != nil {
		v := *match
		card.SimilarityScore = &v
		card.Similarity = fmt.Sprintf("%d%% match", int(v*100+0.5))
	}

	desc, err := e.enrich.Describe(ctx, name)
	if err != nil {
		return Card{}, err
	}
	if len(desc.Tags) > 0 {
		tags := desc.Tags
		if len(tags) > maxGenreTags {
			tags = tags[:maxGenreTags]
		}
		card.Genre = strings.Join(tags, ", ")
	}
	card.Popularity = formatCount(desc.PlayCount)
	card.Followers = formatCount(desc.Listeners)

	img, err := e.images.ArtistImage(ctx, name)
	if err != nil {
		slog.Debug("artist image lookup failed", "artist", name, "error", err)
	} else {
		card.ImageURL = img
	}
	return card, nil
}

// formatCount renders large counts the way the cards display them: 1.2M,
// 3.4K, plain digits below a thousand.
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
