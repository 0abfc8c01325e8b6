// Package speech turns response text into audible output. Providers form
// an ordered fallback chain: the premium cloud voice first, the local
// synthesizer last. A response is only lost if every provider fails.
package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

// ErrAllFailed means no provider in the chain produced audio.
var ErrAllFailed = errors.New("all voice providers failed")

// Provider synthesizes and plays one utterance.
type Provider interface {
	Name() string
	Speak(ctx context.Context, text string) error
}

// Chain tries each provider in order until one succeeds.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Speak plays the text via the first working provider. Empty text is a
// no-op. Individual failures are logged and the next provider is tried.
func (c *Chain) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	var errs []error
	for _, p := range c.providers {
		if err := p.Speak(ctx, text); err != nil {
			log.Warn("voice provider failed, trying next", "provider", p.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
