// Package moderation screens submitted text against a content classifier.
//
// Moderation is a gate, not a filter: it runs to completion before any
// inference quota or storage write is spent on a submission. Classifier
// outages surface as ErrUnavailable so callers can choose policy instead of
// silently allowing or blocking.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnavailable indicates the classification service could not produce a
// verdict.
var ErrUnavailable = errors.New("moderation service unavailable")

// Gate classifies text as allowed or flagged.
type Gate interface {
	// Check reports whether the text violates content policy. A non-nil
	// error wraps ErrUnavailable; flagged is meaningless in that case.
	Check(ctx context.Context, text string) (flagged bool, err error)
}

// ClassifierConfig configures the moderation endpoint and HTTP behavior.
type ClassifierConfig struct {
	ModerationsURL string
	APIKey         string
	HTTPClient     *http.Client
}

type classifier struct {
	cfg ClassifierConfig
}

// NewClassifier builds a Gate backed by an OpenAI-style moderations endpoint.
func NewClassifier(cfg ClassifierConfig) Gate {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ModerationsURL) == "" {
		cfg.ModerationsURL = "https://api.openai.com/v1/moderations"
	}
	return &classifier{cfg: cfg}
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

func (c *classifier) Check(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("%w: empty input", ErrUnavailable)
	}

	payload, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return false, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ModerationsURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded moderationResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(decoded.Results) == 0 {
		return false, fmt.Errorf("%w: empty results", ErrUnavailable)
	}
	return decoded.Results[0].Flagged, nil
}
