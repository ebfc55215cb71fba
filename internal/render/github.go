package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veilchen/gitpress/internal/apperr"
)

// DefaultGitHubEndpoint is the markdown render endpoint of the GitHub REST API.
const DefaultGitHubEndpoint = "https://api.github.com/markdown"

// GitHub renders markdown through the GitHub REST API in gfm mode.
type GitHub struct {
	endpoint string
	token    string
	client   *http.Client
}

var _ Renderer = (*GitHub)(nil)

// NewGitHub creates the API-backed renderer. endpoint may be empty for the
// public API; token is the Bearer token and may be empty for anonymous,
// rate-limited use.
func NewGitHub(endpoint, token string) *GitHub {
	if endpoint == "" {
		endpoint = DefaultGitHubEndpoint
	}
	return &GitHub{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type renderRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// Render implements Renderer. Any transport or non-200 response maps to
// ErrRenderUpstream so callers can surface it as a gateway failure.
func (g *GitHub) Render(ctx context.Context, markdown string) (string, error) {
	body, err := json.Marshal(renderRequest{Text: markdown, Mode: "gfm"})
	if err != nil {
		return "", fmt.Errorf("render: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("render: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render: %v: %w", err, apperr.ErrRenderUpstream)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("render: read response: %v: %w", err, apperr.ErrRenderUpstream)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render: upstream status %d: %w", resp.StatusCode, apperr.ErrRenderUpstream)
	}
	return string(data), nil
}
