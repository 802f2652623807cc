// Package content implements chat.ContentProvider over public HTTP APIs.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"minigame-bot/internal/chat"
	"minigame-bot/internal/config"
)

// ErrFetchFailed is returned for any upstream failure. Callers treat it as a
// soft error and do not retry.
var ErrFetchFailed = errors.New("content fetch failed")

// HTTPProvider fetches jokes and facts from configured endpoints.
type HTTPProvider struct {
	client  *http.Client
	jokeURL string
	factURL string
}

// NewHTTPProvider creates a provider from the content configuration.
func NewHTTPProvider(cfg *config.ContentConfig) *HTTPProvider {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		client:  &http.Client{Timeout: timeout},
		jokeURL: cfg.JokeURL,
		factURL: cfg.FactURL,
	}
}

// jokeResponse matches the official-joke-api payload.
type jokeResponse struct {
	Setup     string `json:"setup"`
	Punchline string `json:"punchline"`
}

// factResponse matches the uselessfacts payload.
type factResponse struct {
	Text string `json:"text"`
}

// Fetch returns one piece of content of the given kind.
func (p *HTTPProvider) Fetch(ctx context.Context, kind string) (string, error) {
	switch kind {
	case chat.KindJoke:
		var body jokeResponse
		if err := p.getJSON(ctx, p.jokeURL, &body); err != nil {
			return "", err
		}
		if body.Setup == "" || body.Punchline == "" {
			return "", fmt.Errorf("%w: empty joke payload", ErrFetchFailed)
		}
		return body.Setup + "\n\n" + body.Punchline, nil

	case chat.KindFact:
		var body factResponse
		if err := p.getJSON(ctx, p.factURL, &body); err != nil {
			return "", err
		}
		if body.Text == "" {
			return "", fmt.Errorf("%w: empty fact payload", ErrFetchFailed)
		}
		return body.Text, nil

	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrFetchFailed, kind)
	}
}

func (p *HTTPProvider) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Content request failed")
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return nil
}
