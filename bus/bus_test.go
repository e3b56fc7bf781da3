// bus/bus_test.go
package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TopicConfig    = "config"
	TopicTelemetry = "telemetry"
)

func recv(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m.Payload
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("no message on %s", sub.Topic())
		return nil
	}
}

func quiet(t *testing.T, subs ...*Subscription) {
	t.Helper()
	for _, s := range subs {
		select {
		case m := <-s.Channel():
			t.Fatalf("%s: unexpected %v on %s", s.Topic(), m.Payload, m.Topic)
		default:
		}
	}
}

func drain(t *testing.T, sub *Subscription, n int) []any {
	t.Helper()
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, recv(t, sub))
	}
	quiet(t, sub)
	return out
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("app")
	sub := c.Subscribe(T(TopicTelemetry, "frame"))

	c.Publish(c.NewMessage(T(TopicTelemetry, "frame"), 42.5, false))
	assert.Equal(t, 42.5, recv(t, sub))

	c.Publish(c.NewMessage(T(TopicTelemetry, "fetch"), "other", false))
	quiet(t, sub)
}

func TestRetainedReplayedOnSubscribe(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("config")
	c.Publish(c.NewMessage(T(TopicConfig, "loop"), "v1", true))
	c.Publish(c.NewMessage(T(TopicConfig, "loop"), "v2", true))

	late := b.NewConnection("late").Subscribe(T(TopicConfig, "loop"))
	assert.Equal(t, []any{"v2"}, drain(t, late, 1))
}

func TestSingleLevelWildcard(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	midC := c.Subscribe(T("a", "+", "c"))
	midAny := c.Subscribe(T("a", "+", "+"))
	exactB := c.Subscribe(T("a", "b", "+"))
	midD := c.Subscribe(T("a", "+", "d"))

	c.Publish(b.NewMessage(T("a", "b", "c"), "abc", false))
	assert.Equal(t, "abc", recv(t, midC))
	assert.Equal(t, "abc", recv(t, midAny))
	assert.Equal(t, "abc", recv(t, exactB))
	quiet(t, midD)

	c.Publish(b.NewMessage(T("a", "x", "y"), "axy", false))
	assert.Equal(t, "axy", recv(t, midAny))
	quiet(t, midC, exactB, midD)

	// "+" never matches a missing level
	c.Publish(b.NewMessage(T("a", "c"), "ac", false))
	quiet(t, midC, midAny, exactB, midD)
}

func TestMultiLevelWildcard(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	all := c.Subscribe(T("#"))
	underA := c.Subscribe(T("a", "#"))
	underAB := c.Subscribe(T("a", "b", "#"))
	onlyA := c.Subscribe(T("a"))

	tests := []struct {
		topic Topic
		hit   []*Subscription
		miss  []*Subscription
	}{
		{T("a"), []*Subscription{all, underA, onlyA}, []*Subscription{underAB}},
		{T("a", "b"), []*Subscription{all, underA, underAB}, []*Subscription{onlyA}},
		{T("a", "b", "c"), []*Subscription{all, underA, underAB}, []*Subscription{onlyA}},
		{T("z"), []*Subscription{all}, []*Subscription{underA, underAB, onlyA}},
	}
	for _, tc := range tests {
		c.Publish(b.NewMessage(tc.topic, tc.topic.String(), false))
		for _, s := range tc.hit {
			assert.Equal(t, tc.topic.String(), recv(t, s), "%s via %s", tc.topic, s.Topic())
		}
		quiet(t, tc.miss...)
	}
}

func TestRetainedWithWildcards(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")
	for payload, topic := range map[string]Topic{
		"r0": T("a"),
		"r1": T("a", "b"),
		"r2": T("a", "b", "c"),
		"r3": T("a", "x"),
	} {
		c.Publish(b.NewMessage(topic, payload, true))
	}

	assert.ElementsMatch(t, []any{"r0", "r1", "r2", "r3"}, drain(t, c.Subscribe(T("a", "#")), 4))
	assert.ElementsMatch(t, []any{"r1", "r2", "r3"}, drain(t, c.Subscribe(T("a", "+", "#")), 3))
	assert.ElementsMatch(t, []any{"r1", "r3"}, drain(t, c.Subscribe(T("a", "+")), 2))
}

func TestNilPayloadClearsRetained(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a", "b"), "keep", true))
	c.Publish(b.NewMessage(T("a", "y"), "other", true))
	c.Publish(b.NewMessage(T("a", "b"), nil, true))

	assert.Equal(t, []any{"other"}, drain(t, c.Subscribe(T("a", "#")), 1))
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T(TopicTelemetry, "frame"))

	for _, p := range []string{"f1", "f2", "f3"} {
		c.Publish(b.NewMessage(T(TopicTelemetry, "frame"), p, false))
	}
	assert.Equal(t, []any{"f2", "f3"}, drain(t, s, 2))
}

func TestUnsubscribeClosesAndPrunes(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("a", "b"))
	c.Unsubscribe(s)

	_, open := <-s.Channel()
	assert.False(t, open)
	assert.Empty(t, b.trie.next)

	assert.NotPanics(t, func() { c.Unsubscribe(s) })
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("svc")
	s1 := c.Subscribe(T(TopicConfig, "#"))
	s2 := c.Subscribe(T(TopicTelemetry, "+"))
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		_, open := <-s.Channel()
		assert.False(t, open)
	}
	require.NotPanics(t, func() {
		b.Publish(b.NewMessage(T(TopicTelemetry, "frame"), 1, false))
	})
}

func TestTopicString(t *testing.T) {
	assert.Equal(t, "config/meter", T(TopicConfig, "meter").String())
	assert.Equal(t, Topic{"telemetry", "frame"}, T(TopicTelemetry, "frame"))
	assert.Equal(t, "svc", NewBus(0).NewConnection("svc").ID())
}
