package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mercator-hq/keel/pkg/anchor"
)

// Scorer computes a similarity score in [0,1] between request text and an
// anchor statement. It is an external capability: Keel consumes it through
// this interface and never implements the model itself.
type Scorer interface {
	Score(ctx context.Context, text, statement string) (float64, error)
}

// SemanticConfig contains configuration for the semantic matching strategy.
type SemanticConfig struct {
	// Threshold is the minimum similarity score that counts as a match.
	// Default: 0.60
	Threshold float64

	// Timeout bounds each scorer call. The semantic strategy must fail
	// closed to the lexical strategy rather than hang.
	// Default: 2 seconds
	Timeout time.Duration
}

// DefaultSemanticConfig returns the default semantic matcher configuration.
func DefaultSemanticConfig() *SemanticConfig {
	return &SemanticConfig{
		Threshold: 0.60,
		Timeout:   2 * time.Second,
	}
}

// Semantic matches via an external similarity scorer. Matching is no longer
// bit-identical across model versions; traces record which strategy produced
// them so this reduced-determinism mode is always visible.
type Semantic struct {
	scorer Scorer
	config *SemanticConfig
}

// NewSemantic creates a semantic matcher over the given scorer.
func NewSemantic(scorer Scorer, config *SemanticConfig) *Semantic {
	if config == nil {
		config = DefaultSemanticConfig()
	}
	return &Semantic{scorer: scorer, config: config}
}

// Name identifies the strategy.
func (s *Semantic) Name() string {
	return "semantic"
}

// Match scores the request text against the anchor statement. A scorer
// failure or timeout returns ErrUnavailable so the caller can degrade to the
// lexical strategy.
func (s *Semantic) Match(ctx context.Context, text string, a *anchor.Anchor) (*Result, error) {
	scoreCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	score, err := s.scorer.Score(scoreCtx, text, a.Statement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if score < s.config.Threshold {
		return &Result{Score: score}, nil
	}

	// Prefer literal fragments for the explanation when the trigger set
	// also hits; otherwise name the statement itself.
	fragments := []string{}
	lexical, _ := NewLexical().Match(ctx, text, a)
	if lexical != nil && lexical.Matched {
		fragments = lexical.Fragments
	}
	if len(fragments) == 0 {
		fragments = []string{fmt.Sprintf("similarity %.2f to %q", score, a.Statement)}
	}

	return &Result{Matched: true, Fragments: fragments, Score: score}, nil
}

// HTTPScorer reaches a similarity scoring service over HTTP. The service
// accepts {"text": ..., "statement": ...} and responds {"score": ...}.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPScorer creates a scorer client for the given endpoint.
func NewHTTPScorer(endpoint string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Score posts the pair to the scoring service and returns the score.
func (h *HTTPScorer) Score(ctx context.Context, text, statement string) (float64, error) {
	payload, err := json.Marshal(map[string]string{
		"text":      text,
		"statement": statement,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	var body struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode scorer response: %w", err)
	}

	if body.Score < 0 || body.Score > 1 {
		return 0, fmt.Errorf("scorer returned score %f outside [0,1]", body.Score)
	}

	return body.Score, nil
}
