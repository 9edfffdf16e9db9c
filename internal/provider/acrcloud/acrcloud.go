// Package acrcloud implements the synchronous recognize provider backed by
// the ACRCloud identify API.
package acrcloud

import (
	"context"
	"fmt"
	"strings"

	"rcheck/internal/logger"
	"rcheck/internal/recognition"
)

// Identifier sends one sample for recognition.
type Identifier interface {
	Identify(ctx context.Context, path string, onSent func(sent, total int64)) (Match, error)
}

// Provider classifies a single identify call: any match is Copyrighted.
type Provider struct {
	client Identifier
	logger *logger.Logger
}

func New(client Identifier, log *logger.Logger) *Provider {
	return &Provider{client: client, logger: log.Named("acrcloud")}
}

func (p *Provider) Kind() recognition.Kind { return recognition.KindACRCloud }
func (p *Provider) Name() string           { return serviceName }

func (p *Provider) Recognize(ctx context.Context, sample recognition.Sample) recognition.Result {
	obs := sample.Notify()
	obs.Stage("Recognizing with ACRCloud...")

	m, err := p.client.Identify(ctx, sample.Path, obs.Sent)
	if err != nil {
		p.logger.Debug("%s: %v", sample.Path, err)
		return recognition.FromError(serviceName, err)
	}

	r := recognition.Result{
		Status:  recognition.Copyrighted,
		Service: fmt.Sprintf("%s: %s - %s", serviceName, strings.Join(m.Artists, ", "), m.Title),
	}
	if m.Score > 0 {
		r.Confidence = fmt.Sprintf("%d%%", m.Score)
	}
	return r
}
