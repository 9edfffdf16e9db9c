package pipeline

import (
	"fmt"
	"time"

	"rcheck/internal/config"
	"rcheck/internal/logger"
	"rcheck/internal/provider/acoustid"
	"rcheck/internal/provider/acrcloud"
	"rcheck/internal/provider/audd"
	"rcheck/internal/provider/audiotag"
	"rcheck/internal/provider/musicbrainz"
	"rcheck/internal/recognition"
)

// NewProviders builds the configured providers in order. cache is shared by
// every fingerprint provider of the run.
func NewProviders(cfg config.Config, cache *recognition.Cache, log *logger.Logger) ([]recognition.Provider, error) {
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no providers selected")
	}

	timeout := time.Duration(cfg.HTTPTimeout) * time.Second
	providers := make([]recognition.Provider, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case recognition.KindAcoustID:
			var resolver acoustid.RecordingResolver
			if cfg.AcoustID.MusicBrainz {
				resolver = musicbrainz.New()
			}
			providers = append(providers, acoustid.New(
				acoustid.FPCalc{Binary: cfg.Tools.FPCalc},
				acoustid.NewClient(cfg.AcoustID.APIKey, timeout),
				resolver, cache, log))
		case recognition.KindACRCloud:
			providers = append(providers, acrcloud.New(acrcloud.NewClient(acrcloud.Config{
				Host:         cfg.ACRCloud.Host,
				AccessKey:    cfg.ACRCloud.AccessKey,
				AccessSecret: cfg.ACRCloud.AccessSecret,
				Timeout:      time.Duration(cfg.ACRCloud.Timeout) * time.Second,
			}), log))
		case recognition.KindAudioTag:
			providers = append(providers, audiotag.New(
				audiotag.NewClient(cfg.AudioTag.APIKey, timeout),
				audiotag.Options{
					PollAttempts: cfg.AudioTag.PollAttempts,
					PollInterval: time.Duration(cfg.AudioTag.PollInterval) * time.Second,
					FullInfo:     cfg.FullInfo,
				}, log))
		case recognition.KindAudD:
			providers = append(providers, audd.New(audd.NewClient(cfg.AudD.APIToken, cfg.AudD.Platforms, timeout), log))
		default:
			return nil, fmt.Errorf("unsupported provider %q", k)
		}
	}
	return providers, nil
}
