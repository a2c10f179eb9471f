// Package client calls ceprd's JSON API over its Unix socket and returns
// the pkg/api DTOs.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lc/cepr/internal/socket"
	"github.com/lc/cepr/pkg/api"
)

// Client holds an http.Client wired to a Unix socket.
type Client struct {
	hc   *http.Client
	base string // dummy scheme+host for Request.URL
}

// New returns a Client for the daemon at socketPath. A nil sock uses
// socket defaults.
func New(socketPath string, sock *socket.Socket) *Client {
	if sock == nil {
		sock = socket.New(nil, nil)
	}
	tr := &http.Transport{DialContext: sock.DialFunc(socketPath)}
	return &Client{hc: &http.Client{Transport: tr}, base: "http://ceprd"}
}

// Lookup resolves code through the daemon. A failed lookup is returned
// as an *api.ErrorResponse.
func (c *Client) Lookup(ctx context.Context, code string) (api.LookupResponse, error) {
	var out api.LookupResponse
	err := c.get(ctx, "/v1/address/"+url.PathEscape(code), &out)
	return out, err
}

// Status retrieves the daemon's counters and build info.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.get(ctx, "/v1/status", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := new(api.ErrorResponse)
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("daemon returned %s", resp.Status)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
