// Package inference derives quest metadata from free-text descriptions.
//
// Title generation and effort estimation are independent calls against a
// text generation service; the intake pipeline runs them concurrently and
// joins the results before persisting anything.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/neighborly/questboard/internal/quest"
)

// ErrInference indicates upstream generation or response parsing failed.
var ErrInference = errors.New("inference failed")

// Effort is a derived estimate of the work a quest requires.
type Effort struct {
	// TimeMinutes is the estimated duration; zero means under one minute
	// and is a legitimate estimate, not a missing value.
	TimeMinutes int
	Size        quest.Size
}

// Inferencer derives quest metadata from a description.
type Inferencer interface {
	InferTitle(ctx context.Context, description string) (string, error)
	InferEffort(ctx context.Context, description string) (Effort, error)
}

const titlePrompt = "Generate a title given a task description. Keep it simple and descriptive. Generate nothing but the title. \n Description: "

const effortPrompt = `Generate a JSON to estimate the time and size given the task description. For time, generate a number in minutes, with 0 being less than 1 minute. For size, choose between "small", "medium", "large". ` + "\n Description: "

// GeneratorConfig configures the text generation endpoint and HTTP behavior.
type GeneratorConfig struct {
	ChatURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type generator struct {
	cfg GeneratorConfig
}

// NewGenerator builds an Inferencer backed by a Cohere-style chat endpoint.
func NewGenerator(cfg GeneratorConfig) Inferencer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ChatURL) == "" {
		cfg.ChatURL = "https://api.cohere.com/v1/chat"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "command-r"
	}
	return &generator{cfg: cfg}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Message        string          `json:"message"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema,omitempty"`
}

type chatResponse struct {
	Text string `json:"text"`
}

// effortSchema constrains the effort estimation response to the two
// required fields.
var effortSchema = map[string]any{
	"type":     "object",
	"required": []string{"time", "size"},
	"properties": map[string]any{
		"time": map[string]any{"type": "integer"},
		"size": map[string]any{"type": "string"},
	},
}

// InferTitle generates a short descriptive title. Quote characters in the
// raw model output are stripped.
func (g *generator) InferTitle(ctx context.Context, description string) (string, error) {
	text, err := g.chat(ctx, chatRequest{
		Model:   g.cfg.Model,
		Message: titlePrompt + description,
	})
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.ReplaceAll(text, `"`, ""))
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrInference)
	}
	return title, nil
}

// effortPayload decodes the structured effort response. Pointer fields
// distinguish an absent field from a legitimate zero value.
type effortPayload struct {
	Time *int    `json:"time"`
	Size *string `json:"size"`
}

// InferEffort requests a schema-constrained estimate and validates field
/// presence, not truthiness: a zero-minute estimate is valid.
func (g *generator) InferEffort(ctx context.Context, description string) (Effort, error) {
	text, err := g.chat(ctx, chatRequest{
		Model:   g.cfg.Model,
		Message: effortPrompt + description,
		ResponseFormat: &responseFormat{
			Type:   "json_object",
			Schema: effortSchema,
		},
	})
	if err != nil {
		return Effort{}, err
	}

	var payload effortPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Effort{}, fmt.Errorf("%w: decode effort: %v", ErrInference, err)
	}
	if payload.Time == nil {
		return Effort{}, fmt.Errorf("%w: missing time field", ErrInference)
	}
	if payload.Size == nil {
		return Effort{}, fmt.Errorf("%w: missing size field", ErrInference)
	}
	if *payload.Time < 0 {
		return Effort{}, fmt.Errorf("%w: negative time estimate %d", ErrInference, *payload.Time)
	}
	size, err := quest.ParseSize(*payload.Size)
	if err != nil {
		return Effort{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return Effort{TimeMinutes: *payload.Time, Size: size}, nil
}

func (g *generator) chat(ctx context.Context, request chatRequest) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ChatURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(g.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrInference, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrInference, resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrInference, err)
	}
	return decoded.Text, nil
}
