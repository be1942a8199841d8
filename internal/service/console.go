// Package service holds clients for the device-side services the kernel's
// tools act on.
package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// WorldConsole drives the world console over HTTP: POST <base>/save and
// POST <base>/destroy. With no base URL it only logs the action.
type WorldConsole struct {
	baseURL    string
	client     *http.Client
	maxRetries uint64
}

func NewWorldConsole(baseURL string, client *http.Client) *WorldConsole {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WorldConsole{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		maxRetries: 2,
	}
}

func (c *WorldConsole) SaveWorld(ctx context.Context) error {
	return c.post(ctx, "save")
}

func (c *WorldConsole) DestroyWorld(ctx context.Context) error {
	return c.post(ctx, "destroy")
}

func (c *WorldConsole) post(ctx context.Context, action string) error {
	if c.baseURL == "" {
		log.Info().Str("action", action).Msg("world console not configured; action logged only")
		return nil
	}
	url := c.baseURL + "/" + action

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("console %s: %w", action, err))
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("console %s returned %d", action, resp.StatusCode))
		case resp.StatusCode >= 300:
			return fmt.Errorf("console %s returned %d", action, resp.StatusCode)
		}
		log.Info().Str("action", action).Msg("world console action done")
		return nil
	})
}

// TestConnection checks that the console answers at all.
func (c *WorldConsole) TestConnection(ctx context.Context) error {
	if c.baseURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("console returned %d", resp.StatusCode)
	}
	return nil
}
