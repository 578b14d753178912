package discovery

import (
	"context"
	"errors"
)

// Emitter delivers named events to one connection or to all of them.
// The engine never talks to a transport directly; the broker implements this.
type Emitter interface {
	Emit(target, event string, payload any)
}

// SimilarArtist is one related artist returned by the similarity provider.
// Match is the provider's similarity score in [0,1], or nil when the provider
// did not supply one. Scores are not comparable across calls.
type SimilarArtist struct {
	Name  string
	Match *float64
}

// SimilarityGateway expands one artist into its related artists.
type SimilarityGateway interface {
	Similar(ctx context.Context, artist string) ([]SimilarArtist, error)
}

// Description holds the descriptive attributes fetched during enrichment.
// Fields degrade independently: a provider error on one leaves the others set.
type Description struct {
	Tags      []string
	Listeners int64
	PlayCount int64
}

// EnrichmentGateway fetches descriptive attributes for one artist.
type EnrichmentGateway interface {
	Describe(ctx context.Context, artist string) (Description, error)
}

// ImageGateway looks up an artist image URL.
type ImageGateway interface {
	ArtistImage(ctx context.Context, artist string) (string, error)
}

// AddOutcome classifies the library manager's response to an add request.
type AddOutcome string

const (
	AddOutcomeAdded          AddOutcome = "Added"
	AddOutcomeAlreadyPresent AddOutcome = "Already in Library"
	AddOutcomeInvalidPath    AddOutcome = "Invalid Path"
	AddOutcomeFailed         AddOutcome = "Failed to Add"
)

// StatusRequested marks a card whose artist went into the moderation queue
// instead of straight into the library.
const StatusRequested = "Requested"

// LibraryGateway is the library manager: the catalog source and add target.
type LibraryGateway interface {
	ListArtists(ctx context.Context) ([]string, error)
	AddArtist(ctx context.Context, name, foreignID string) (AddOutcome, error)
}

// IdentityResolver maps an artist name to the canonical external ID the
// library manager needs. An empty ID with nil error means no match.
type IdentityResolver interface {
	ResolveArtistID(ctx context.Context, name string) (string, error)
}

// SeedRecommender turns a free-text prompt into seed artist names.
type SeedRecommender interface {
	GenerateSeeds(ctx context.Context, prompt string, library []string) ([]string, error)
}

// ListeningGateway fetches personal seed artists for a listening-profile user.
type ListeningGateway interface {
	Configured() bool
	RecommendedArtists(ctx context.Context, username string, limit int) ([]string, error)
	TopArtists(ctx context.Context, username string, limit int) ([]string, error)
}

// ErrNotConfigured is returned by optional gateways whose credentials have not
// been set up yet.
var ErrNotConfigured = errors.New("service not configured")
