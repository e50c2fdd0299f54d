// Package remote talks to the optional lottery backend that can serve the
// participant list and perform draws on its side.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"luckydraw/internal/models"
)

// ErrUnavailable wraps every failure to get a usable answer from the
// backend: transport errors, non-success statuses and malformed payloads.
var ErrUnavailable = errors.New("remote lottery backend unavailable")

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Config holds the backend location.
type Config struct {
	BaseURL       string
	UsersEndpoint string
	DrawEndpoint  string
	Timeout       time.Duration
}

// Client is a small JSON client for the backend.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client. A zero timeout means ten seconds.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchUsers fetches the full participant list.
func (c *Client) FetchUsers(ctx context.Context) ([]models.Participant, error) {
	return c.get(ctx, c.cfg.UsersEndpoint, nil)
}

// Draw asks the backend to draw count winners.
func (c *Client) Draw(ctx context.Context, count int) ([]models.Participant, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	return c.get(ctx, c.cfg.DrawEndpoint, q)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]models.Participant, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	var participants []models.Participant
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&participants); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, endpoint, err)
	}
	for i, p := range participants {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %s entry %d has no id", ErrUnavailable, endpoint, i)
		}
	}
	return participants, nil
}
