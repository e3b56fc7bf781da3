package meter

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarmatrix-go/bus"
	"solarmatrix-go/errcode"
	"solarmatrix-go/types"
)

type scriptedFetcher struct {
	results []error // nil means success
	value   float64
	calls   int
}

func (f *scriptedFetcher) Fetch(_ context.Context, _ string) (float64, error) {
	i := f.calls
	f.calls++
	if i < len(f.results) && f.results[i] != nil {
		return 0, f.results[i]
	}
	if i >= len(f.results) && len(f.results) > 0 && f.results[len(f.results)-1] != nil {
		return 0, f.results[len(f.results)-1]
	}
	return f.value, nil
}

type countingReconnector struct {
	err   error
	calls int
}

func (r *countingReconnector) Reconnect(context.Context) error {
	r.calls++
	return r.err
}

type countingRestarter struct{ calls int }

func (r *countingRestarter) Restart() { r.calls++ }

type countingIndicator struct{ pulses int }

func (i *countingIndicator) Pulse() { i.pulses++ }

var errTimeout = errcode.Wrap(errcode.Transport, "get", errors.New("i/o timeout"))

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from State
		on   Event
		want State
	}{
		{Fetching, EvOK, Done},
		{Fetching, EvFailed, Reconnecting},
		{Reconnecting, EvLinkUp, Retrying},
		{Reconnecting, EvLinkDown, Retrying},
		{Retrying, EvBudgetLeft, Fetching},
		{Retrying, EvBudgetSpent, Fatal},
	}
	for _, tc := range tests {
		got, ok := Next(tc.from, tc.on)
		require.True(t, ok, "%s on %d", tc.from, tc.on)
		assert.Equal(t, tc.want, got, "%s on %d", tc.from, tc.on)
	}

	_, ok := Next(Done, EvFailed)
	assert.False(t, ok)
	_, ok = Next(Fatal, EvOK)
	assert.False(t, ok)
}

func TestFetchSucceedsFirstTry(t *testing.T) {
	f := &scriptedFetcher{value: 1234.5}
	rc := &countingReconnector{}
	rs := &countingRestarter{}
	ind := &countingIndicator{}
	c := New(f, rc, rs, Options{MaxRetries: 3, Indicator: ind})

	v, err := c.Fetch(context.Background(), "http://meter/solar")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)
	assert.Equal(t, 0, c.LastAttempts())
	assert.Equal(t, 0, rc.calls)
	assert.Equal(t, 1, ind.pulses)
}

func TestFetchRecoversWithinBudget(t *testing.T) {
	for _, max := range []int{1, 2, 3, 5} {
		results := make([]error, max-1, max)
		for i := range results {
			results[i] = errTimeout
		}
		results = append(results, nil)

		f := &scriptedFetcher{results: results, value: -420}
		rc := &countingReconnector{}
		rs := &countingRestarter{}
		c := New(f, rc, rs, Options{MaxRetries: max})

		v, err := c.Fetch(context.Background(), "u")
		require.NoError(t, err, "max=%d", max)
		assert.Equal(t, -420.0, v)
		assert.Equal(t, max-1, c.LastAttempts())
		assert.Equal(t, max-1, rc.calls)
		assert.Equal(t, max, f.calls)
		assert.Zero(t, rs.calls)
	}
}

func TestFetchExhaustionRestartsOnce(t *testing.T) {
	f := &scriptedFetcher{results: []error{errTimeout}}
	rc := &countingReconnector{}
	rs := &countingRestarter{}
	c := New(f, rc, rs, Options{MaxRetries: 3})

	v, err := c.Fetch(context.Background(), "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatal)
	assert.Equal(t, errcode.Fatal, errcode.Of(err))
	assert.ErrorIs(t, err, errcode.Transport)
	assert.Zero(t, v)
	assert.Equal(t, 1, rs.calls)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, 3, rc.calls)
	assert.Equal(t, 3, c.LastAttempts())
}

func TestReconnectFailureStillCounts(t *testing.T) {
	f := &scriptedFetcher{results: []error{errcode.Parse}}
	rc := &countingReconnector{err: errcode.Reconnect}
	rs := &countingRestarter{}
	c := New(f, rc, rs, Options{MaxRetries: 2})

	_, err := c.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, errcode.Fatal)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 1, rs.calls)
}

func TestZeroAndNegativeAreValid(t *testing.T) {
	for _, want := range []float64{0, -1, -3500.25} {
		c := New(&scriptedFetcher{value: want}, &countingReconnector{}, &countingRestarter{}, Options{})
		got, err := c.Fetch(context.Background(), "u")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNaNCountsAsParseFailure(t *testing.T) {
	f := &scriptedFetcher{value: math.NaN()}
	rs := &countingRestarter{}
	c := New(f, &countingReconnector{}, rs, Options{MaxRetries: 2})

	_, err := c.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, errcode.Parse)
	assert.Equal(t, 1, rs.calls)
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &scriptedFetcher{value: 1}
	c := New(f, &countingReconnector{}, &countingRestarter{}, Options{})

	_, err := c.Fetch(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.calls)
}

type cancellingFetcher struct {
	cancel   context.CancelFunc
	cancelAt int
	calls    int
}

func (f *cancellingFetcher) Fetch(ctx context.Context, _ string) (float64, error) {
	f.calls++
	if f.calls == f.cancelAt {
		f.cancel()
		return 0, errcode.Wrap(errcode.Transport, "get", ctx.Err())
	}
	return 0, errTimeout
}

type cancellingReconnector struct{ cancel context.CancelFunc }

func (r *cancellingReconnector) Reconnect(ctx context.Context) error {
	r.cancel()
	return errcode.Wrap(errcode.Reconnect, "wifi", ctx.Err())
}

func TestShutdownDuringLastAttemptDoesNotRestart(t *testing.T) {
	for _, n := range []int{1, 3} {
		ctx, cancel := context.WithCancel(context.Background())
		f := &cancellingFetcher{cancel: cancel, cancelAt: n}
		rc := &countingReconnector{}
		rs := &countingRestarter{}
		c := New(f, rc, rs, Options{MaxRetries: n})

		_, err := c.Fetch(ctx, "u")
		assert.ErrorIs(t, err, context.Canceled, "max=%d", n)
		assert.NotEqual(t, errcode.Fatal, errcode.Of(err), "max=%d", n)
		assert.Zero(t, rs.calls, "max=%d", n)
		assert.Equal(t, n-1, rc.calls, "max=%d", n)
		assert.Equal(t, n-1, c.LastAttempts(), "max=%d", n)
	}
}

func TestShutdownDuringReconnectDoesNotRestart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rs := &countingRestarter{}
	c := New(&scriptedFetcher{results: []error{errTimeout}}, &cancellingReconnector{cancel: cancel}, rs, Options{MaxRetries: 1})

	_, err := c.Fetch(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rs.calls)
}

func TestFetchStatusPublished(t *testing.T) {
	b := bus.NewBus(4)
	sub := b.NewConnection("test").Subscribe(TopicFetchStatus)
	c := New(&scriptedFetcher{results: []error{errTimeout, nil}, value: 7},
		&countingReconnector{}, &countingRestarter{},
		Options{Conn: b.NewConnection("meter")})

	_, err := c.Fetch(context.Background(), "http://m/grid")
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.FetchStatus)
		require.True(t, ok)
		assert.Equal(t, "http://m/grid", st.URL)
		assert.Equal(t, 1, st.Attempts)
		assert.True(t, st.OK)
	case <-time.After(time.Second):
		t.Fatal("no fetch status")
	}
}
