package discovery

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/resonarr/backend/internal/normalize"
)

// DefaultCandidateCap bounds how many candidates a single run collects.
const DefaultCandidateCap = 500

// Candidate is one deduplicated discovery result awaiting enrichment.
type Candidate struct {
	Key   string
	Name  string
	Match *float64
}

// BuildCandidates expands each seed through the similarity provider and
// merges the results into one deduplicated, deterministically ordered list.
//
// Names whose normalized key appears in excluded, or was already produced by
// an earlier seed, are dropped; the first occurrence wins, keeping its score.
// A provider failure on one seed skips that seed only. Once the cap is
// reached the current seed is still drained in full, then no further seeds
// are queried.
func BuildCandidates(ctx context.Context, gw SimilarityGateway, seeds []string, excluded map[string]struct{}, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultCandidateCap
	}

	seen := make(map[string]struct{}, limit)
	var out []Candidate

	for _, seed := range seeds {
		related, err := gw.Similar(ctx, seed)
		if err != nil {
			slog.Debug("similarity lookup failed, skipping seed", "seed", seed, "error", err)
			continue
		}
		for _, rel := range related {
			name := strings.TrimSpace(rel.Name)
			if name == "" {
				continue
			}
			key := normalize.Key(name)
			if _, dup := seen[key]; dup {
				continue
			}
			if _, owned := excluded[key]; owned {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Candidate{Key: key, Name: name, Match: rel.Match})
		}
		if len(out) >= limit {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool {
		si, sj := scoreOf(out[i]), scoreOf(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// scoreOf treats a missing similarity score as below every real score.
func scoreOf(c Candidate) float64 {
	if c.Match == nil {
		return -1
	}
	return *c.Match
}
