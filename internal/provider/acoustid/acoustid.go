// Package acoustid implements the fingerprint-lookup provider: the sample is
// fingerprinted locally with fpcalc and matched against the AcoustID database.
package acoustid

import (
	"context"
	"fmt"

	"rcheck/internal/logger"
	"rcheck/internal/provider/musicbrainz"
	"rcheck/internal/recognition"
)

// MatchThreshold is the minimum AcoustID score accepted as a match.
const MatchThreshold = 0.90

// Lookuper queries a remote fingerprint database.
type Lookuper interface {
	Lookup(ctx context.Context, fp recognition.Fingerprint) ([]Candidate, error)
}

// RecordingResolver fills in titles for recordings returned without metadata.
type RecordingResolver interface {
	Recording(ctx context.Context, id string) (musicbrainz.Recording, error)
}

// Provider is the fingerprint-lookup recognition provider.
type Provider struct {
	fingerprinter Fingerprinter
	lookup        Lookuper
	resolver      RecordingResolver
	cache         *recognition.Cache
	logger        *logger.Logger
}

// New creates a Provider. resolver may be nil.
func New(fp Fingerprinter, lookup Lookuper, resolver RecordingResolver, cache *recognition.Cache, log *logger.Logger) *Provider {
	if cache == nil {
		cache = recognition.NewCache()
	}
	return &Provider{
		fingerprinter: fp,
		lookup:        lookup,
		resolver:      resolver,
		cache:         cache,
		logger:        log.Named("acoustid"),
	}
}

func (p *Provider) Kind() recognition.Kind { return recognition.KindAcoustID }
func (p *Provider) Name() string           { return serviceName }

// Recognize fingerprints the sample and looks it up, consulting the cache first.
//
// Every lookup outcome is cached, including Unknown results caused by
// transient failures, so a file repeated within one run is never retried.
func (p *Provider) Recognize(ctx context.Context, sample recognition.Sample) recognition.Result {
	obs := sample.Notify()

	obs.Stage("Fingerprinting...")
	fp, err := p.fingerprinter.Fingerprint(ctx, sample.Path)
	if err != nil {
		p.logger.Debug("%s: %v", sample.Path, err)
		return recognition.FromError(serviceName, err)
	}
	if fp.Encoded == "" {
		return recognition.UnknownResult(serviceName)
	}

	if cached, ok := p.cache.Get(fp); ok {
		p.logger.Debug("cache hit for %s", sample.Path)
		return cached
	}

	obs.Stage("Looking up fingerprint...")
	result := p.match(ctx, fp)
	p.cache.Put(fp, result)
	return result
}

func (p *Provider) match(ctx context.Context, fp recognition.Fingerprint) recognition.Result {
	candidates, err := p.lookup.Lookup(ctx, fp)
	if err != nil {
		p.logger.Debug("lookup failed: %v", err)
		return recognition.FromError(serviceName, err)
	}

	best, ok := bestCandidate(candidates)
	if !ok || best.Score < MatchThreshold {
		return recognition.UnknownResult(serviceName)
	}

	if best.Title == "" && best.RecordingID != "" && p.resolver != nil {
		rec, err := p.resolver.Recording(ctx, best.RecordingID)
		if err != nil {
			p.logger.Debug("musicbrainz lookup for %s failed: %v", best.RecordingID, err)
		} else {
			best.Title, best.Artist = rec.Title, rec.Artist
		}
	}

	return recognition.Result{
		Status:     recognition.Copyrighted,
		Service:    describe(best),
		Confidence: fmt.Sprintf("%.0f%%", best.Score*100),
	}
}

// bestCandidate returns the highest scoring candidate; the first wins ties.
func bestCandidate(cs []Candidate) (Candidate, bool) {
	if len(cs) == 0 {
		return Candidate{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

func describe(c Candidate) string {
	switch {
	case c.Title != "" && c.Artist != "":
		return fmt.Sprintf("%s: %s - %s", serviceName, c.Artist, c.Title)
	case c.Title != "":
		return fmt.Sprintf("%s: %s", serviceName, c.Title)
	default:
		return fmt.Sprintf("%s: recording %s", serviceName, c.RecordingID)
	}
}
