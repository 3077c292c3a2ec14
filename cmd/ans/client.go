package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/assistant"
	httpserver "github.com/fyrsmithlabs/answerd/internal/http"
)

// client talks to a running answerd.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) Ask(ctx context.Context, utterance string) (assistant.Reply, error) {
	var reply assistant.Reply
	err := c.do(ctx, http.MethodPost, "/api/v1/ask", httpserver.AskRequest{Utterance: utterance}, http.StatusOK, &reply)
	return reply, err
}

func (c *client) Teach(ctx context.Context, req httpserver.TeachRequest) (httpserver.TeachResponse, error) {
	var resp httpserver.TeachResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/teach", req, http.StatusCreated, &resp)
	return resp, err
}

func (c *client) Status(ctx context.Context) (httpserver.StatusResponse, error) {
	var resp httpserver.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, http.StatusOK, &resp)
	return resp, err
}

func (c *client) Health(ctx context.Context) (httpserver.HealthResponse, error) {
	var resp httpserver.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &resp)
	return resp, err
}

func (c *client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
