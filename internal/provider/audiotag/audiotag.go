// Package audiotag implements the upload-and-poll provider: the sample is
// uploaded once for a token, then the result endpoint is polled until it
// reaches a terminal answer or the attempt budget runs out.
package audiotag

import (
	"context"
	"fmt"
	"time"

	"rcheck/internal/logger"
	"rcheck/internal/recognition"
)

const (
	DefaultPollAttempts = 30
	DefaultPollInterval = 2 * time.Second
)

// Service is the remote half of the protocol.
type Service interface {
	Submit(ctx context.Context, path string, onSent func(sent, total int64)) (string, error)
	Poll(ctx context.Context, token string) (PollResult, error)
}

// Options tunes polling and output.
type Options struct {
	PollAttempts int
	PollInterval time.Duration
	FullInfo     bool // append the reported confidence to the description
}

type Provider struct {
	svc    Service
	opts   Options
	logger *logger.Logger
}

func New(svc Service, opts Options, log *logger.Logger) *Provider {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Provider{svc: svc, opts: opts, logger: log.Named("audiotag")}
}

func (p *Provider) Kind() recognition.Kind { return recognition.KindAudioTag }
func (p *Provider) Name() string           { return serviceName }

// Recognize uploads the sample and polls for at most PollAttempts results.
func (p *Provider) Recognize(ctx context.Context, sample recognition.Sample) recognition.Result {
	obs := sample.Notify()

	token, err := p.svc.Submit(ctx, sample.Path, obs.Sent)
	if err != nil {
		p.logger.Debug("%s: %v", sample.Path, err)
		return recognition.FromError(serviceName, err)
	}
	p.logger.Debug("%s: token %s", sample.Path, token)

	for attempt := 1; attempt <= p.opts.PollAttempts; attempt++ {
		obs.Stage(fmt.Sprintf("waiting for result (%d/%d)", attempt, p.opts.PollAttempts))

		res, err := p.svc.Poll(ctx, token)
		if err != nil {
			p.logger.Debug("poll %d for %s: %v", attempt, sample.Path, err)
			return recognition.UnknownResult(serviceName)
		}

		switch res.State {
		case Found:
			if !res.HasTrack {
				return recognition.UnknownResult(serviceName)
			}
			r := recognition.Result{
				Status:     recognition.Copyrighted,
				Service:    fmt.Sprintf("%s: %s - %s", serviceName, res.Artist, res.Title),
				Confidence: res.Confidence,
			}
			if p.opts.FullInfo {
				r.Service += fmt.Sprintf(" (confidence: %s%%)", res.Confidence)
			}
			return r
		case NotFound:
			return recognition.UnknownResult(serviceName)
		}

		if attempt < p.opts.PollAttempts && !p.wait(ctx) {
			return recognition.UnknownResult(serviceName)
		}
	}

	p.logger.Debug("%s: no result after %d polls", sample.Path, p.opts.PollAttempts)
	return recognition.UnknownResult(serviceName)
}

func (p *Provider) wait(ctx context.Context) bool {
	t := time.NewTimer(p.opts.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
