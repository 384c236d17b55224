package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/narrative"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/pkg/anthropic"
)

// initNarrative builds the narrative service from config. It returns nil
// when no API key is configured.
func initNarrative() *narrative.Service {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	opts := []anthropic.Option{anthropic.WithRateLimit(cfg.Anthropic.RequestsPerSecond, 1)}
	if t := cfg.Anthropic.Timeout(); t > 0 {
		opts = append(opts, anthropic.WithTimeout(t))
	}
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropic.NewClient(cfg.Anthropic.Key, opts...)

	bcfg := resilience.FromSettings(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeoutSecs)
	bcfg.Trips = resilience.IsTransient
	bcfg.OnStateChange = func(name string, from, to resilience.State) {
		zap.L().Warn("circuit breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	breaker := resilience.NewBreaker("anthropic", bcfg, nil)

	return narrative.New(client, breaker, narrative.Config{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	}, nil)
}
