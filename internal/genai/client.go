package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rentou/server/config"
	"rentou/server/internal/metrics"
)

const providerName = "gemini"

// FallbackText is returned when the provider answers without candidates.
const FallbackText = "Não foi possível gerar um texto no momento."

type Client struct {
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		logger:  logger,
		client:  &http.Client{Timeout: cfg.GenAI.Timeout},
		baseURL: strings.TrimSuffix(cfg.GenAI.BaseURL, "/"),
		model:   cfg.GenAI.Model,
		apiKey:  cfg.GenAI.APIKey,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(providerName, start, err) }()

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
			"model":  c.model,
		}).Error("Generative text provider returned an error")
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		c.logger.WithField("model", c.model).Warn("Provider returned no candidates")
		return FallbackText, nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
