// Package meterhttp reads the instantaneous power from a Shelly-style
// energy meter over HTTP.
package meterhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solarmatrix-go/errcode"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBody        = 64 << 10
)

// Client performs authenticated GETs. The zero value is not usable; use New.
type Client struct {
	hc       *http.Client
	user     string
	password string
}

func New(user, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		user:     user,
		password: password,
	}
}

type reading struct {
	Power *float64 `json:"power"`
}

// Fetch GETs url and returns its "power" field in watts.
// Network errors and non-2xx statuses are errcode.Transport; a body that is
// not JSON or lacks a numeric power field is errcode.Parse.
func (c *Client) Fetch(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errcode.Wrap(errcode.Transport, "get", err)
	}
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, errcode.Wrap(errcode.Transport, "get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return 0, &errcode.E{C: errcode.Transport, Op: "get", Msg: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var r reading
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&r); err != nil {
		return 0, errcode.Wrap(errcode.Parse, "decode", err)
	}
	if r.Power == nil {
		return 0, &errcode.E{C: errcode.Parse, Op: "decode", Msg: "missing power field"}
	}
	return *r.Power, nil
}
