// Package narrative produces AI-written analyses of company ESG records.
package narrative

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/pkg/anthropic"
)

// Placeholder replaces the text of any analysis that could not be generated.
const Placeholder = "Sorry, AI analysis is temporarily unavailable. Please try again later."

// Analysis kinds, used in logs and as report block keys.
const (
	KindExplain    = "explain"
	KindCompare    = "compare"
	KindRecommend  = "recommend"
	KindConnection = "connection"
)

// Result is the outcome of one generation. Failures carry the placeholder
// text and the error message.
type Result struct {
	Success     bool      `json:"success"`
	Text        string    `json:"analysis"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"timestamp"`
}

// Analysis bundles the three narratives for one company.
type Analysis struct {
	Company        string    `json:"company"`
	Peers          PeerStats `json:"peers"`
	Explanation    Result    `json:"explanation"`
	Comparison     Result    `json:"comparison"`
	Recommendation Result    `json:"recommendation"`
}

// Config holds generation parameters.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Service generates narratives through a rate-limited client guarded by a
// circuit breaker.
type Service struct {
	client  anthropic.Client
	breaker *resilience.Breaker
	cfg     Config
	clock   clockwork.Clock
}

// New creates a Service. A nil breaker gets the default configuration and a
// nil clock means the real clock.
func New(client anthropic.Client, breaker *resilience.Breaker, cfg Config, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if breaker == nil {
		breaker = resilience.NewBreaker("anthropic", resilience.BreakerConfig{Trips: resilience.IsTransient}, clock)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Service{client: client, breaker: breaker, cfg: cfg, clock: clock}
}

// Generate sends one prompt. It never returns an error; failures are
// reported in the Result.
func (s *Service) Generate(ctx context.Context, kind, prompt string) Result {
	now := s.clock.Now().UTC()
	text, err := s.generate(ctx, kind, prompt)
	if err != nil {
		err = esg.NewExternalError("anthropic", err)
		zap.L().Warn("narrative generation failed",
			zap.String("analysis", kind),
			zap.String("breaker", s.breaker.State().String()),
			zap.Error(err),
		)
		return Result{Success: false, Text: Placeholder, Error: err.Error(), GeneratedAt: now}
	}
	return Result{Success: true, Text: text, GeneratedAt: now}
}

func (s *Service) generate(ctx context.Context, kind, prompt string) (string, error) {
	temp := s.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	resp, err := resilience.Do(ctx, s.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(s.cfg.Model, kind)
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("narrative: empty response")
	}
	return text, nil
}

// ExplainScore explains why the company received its scores.
func (s *Service) ExplainScore(ctx context.Context, c *model.CompanyRecord) Result {
	return s.Generate(ctx, KindExplain, ExplainPrompt(c))
}

// ComparePeers compares the company with its peers.
func (s *Service) ComparePeers(ctx context.Context, c *model.CompanyRecord, peers []model.CompanyRecord) Result {
	return s.Generate(ctx, KindCompare, ComparePrompt(c, ComputePeerStats(c, peers)))
}

// RecommendInvestment produces an ESG investment recommendation. Peers only
// supply the company's ranking.
func (s *Service) RecommendInvestment(ctx context.Context, c *model.CompanyRecord, peers []model.CompanyRecord) Result {
	return s.Generate(ctx, KindRecommend, RecommendPrompt(c, ComputePeerStats(c, peers)))
}

// TestConnection sends a fixed prompt to check credentials and reachability.
func (s *Service) TestConnection(ctx context.Context) Result {
	return s.Generate(ctx, KindConnection, connectionPrompt)
}

// Analyze runs the three analyses concurrently. Each failed block carries
// the placeholder independently of the others.
func (s *Service) Analyze(ctx context.Context, c *model.CompanyRecord, peers []model.CompanyRecord) *Analysis {
	stats := ComputePeerStats(c, peers)
	out := &Analysis{Company: c.CompanyName, Peers: stats}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Explanation = s.Generate(gctx, KindExplain, ExplainPrompt(c))
		return nil
	})
	g.Go(func() error {
		out.Comparison = s.Generate(gctx, KindCompare, ComparePrompt(c, stats))
		return nil
	})
	g.Go(func() error {
		out.Recommendation = s.Generate(gctx, KindRecommend, RecommendPrompt(c, stats))
		return nil
	})
	_ = g.Wait()

	zap.L().Info("narrative analysis complete",
		zap.String("company", c.CompanyName),
		zap.Bool("explanation", out.Explanation.Success),
		zap.Bool("comparison", out.Comparison.Success),
		zap.Bool("recommendation", out.Recommendation.Success),
	)
	return out
}

// Blocks returns the narratives keyed by kind, for renderers.
func (a *Analysis) Blocks() map[string]string {
	if a == nil {
		return nil
	}
	return map[string]string{
		KindExplain:   a.Explanation.Text,
		KindCompare:   a.Comparison.Text,
		KindRecommend: a.Recommendation.Text,
	}
}
