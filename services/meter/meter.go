// Package meter fetches one numeric reading from the energy meter, retrying
// through reconnects and escalating to a device restart when the retry
// budget runs out.
package meter

import (
	"context"
	"fmt"
	"math"

	"solarmatrix-go/bus"
	"solarmatrix-go/errcode"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/timex"
)

const DefaultMaxRetries = 3

// ErrFatal is returned only when a Restarter returns instead of rebooting.
var ErrFatal error = errcode.Fatal

var TopicFetchStatus = bus.T("telemetry", "fetch")

// Fetcher performs one authenticated GET and parses the power field.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (float64, error)
}

// Reconnector re-associates the network link.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// Indicator signals a successful fetch, e.g. by blinking an LED.
type Indicator interface {
	Pulse()
}

// Restarter reboots the device. It is not expected to return.
type Restarter interface {
	Restart()
}

type Options struct {
	MaxRetries int
	Indicator  Indicator       // optional
	Conn       *bus.Connection // optional; receives FetchStatus
}

// Client is used from a single goroutine.
type Client struct {
	f   Fetcher
	rc  Reconnector
	rs  Restarter
	ind Indicator
	bus *bus.Connection
	max int
	log *logx.Logger

	attempts int
}

func New(f Fetcher, rc Reconnector, rs Restarter, opt Options) *Client {
	n := opt.MaxRetries
	if n < 1 {
		n = DefaultMaxRetries
	}
	return &Client{
		f:   f,
		rc:  rc,
		rs:  rs,
		ind: opt.Indicator,
		bus: opt.Conn,
		max: n,
		log: logx.New("meter"),
	}
}

// LastAttempts reports the failure count of the most recent Fetch.
func (c *Client) LastAttempts() int { return c.attempts }

// Fetch returns the reading at url. Every failed attempt triggers a
// reconnect and consumes one unit of budget whether or not the reconnect
// worked. When the budget is gone the device is restarted. A failure caused
// by ctx ending returns ctx.Err() and never counts against the budget.
func (c *Client) Fetch(ctx context.Context, url string) (float64, error) {
	var (
		state   = Fetching
		value   float64
		lastErr error
	)
	c.attempts = 0

	for {
		var ev Event
		switch state {
		case Fetching:
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			v, err := c.f.Fetch(ctx, url)
			if err == nil && math.IsNaN(v) {
				err = errcode.Wrap(errcode.Parse, "fetch", fmt.Errorf("power is NaN"))
			}
			if err != nil {
				// shutdown is not a meter failure and must not spend budget
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				lastErr = err
				c.log.Warnf("%s failed (%s): %v", url, errcode.Of(err), err)
				ev = EvFailed
			} else {
				value = v
				ev = EvOK
			}

		case Reconnecting:
			if err := c.rc.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				c.log.Warnf("reconnect failed: %v", err)
				ev = EvLinkDown
			} else {
				ev = EvLinkUp
			}

		case Retrying:
			c.attempts++
			if c.attempts < c.max {
				c.log.Infof("retry %d/%d", c.attempts, c.max)
				ev = EvBudgetLeft
			} else {
				ev = EvBudgetSpent
			}

		case Done:
			if c.ind != nil {
				c.ind.Pulse()
			}
			c.publish(url, true, nil)
			return value, nil

		case Fatal:
			c.log.Fatalf("giving up on %s after %d attempts, restarting: %v", url, c.attempts, lastErr)
			c.publish(url, false, lastErr)
			c.rs.Restart()
			return 0, &errcode.E{C: errcode.Fatal, Op: "fetch", Msg: url, Err: lastErr}
		}

		next, ok := Next(state, ev)
		if !ok {
			return 0, &errcode.E{C: errcode.Error, Op: "fetch", Msg: fmt.Sprintf("no transition from %s", state)}
		}
		state = next
	}
}

func (c *Client) publish(url string, ok bool, err error) {
	if c.bus == nil {
		return
	}
	st := types.FetchStatus{URL: url, Attempts: c.attempts, OK: ok, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	c.bus.Publish(c.bus.NewMessage(TopicFetchStatus, st, false))
}
