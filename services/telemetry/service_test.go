package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarmatrix-go/bus"
	"solarmatrix-go/types"
)

type sent struct {
	topic   string
	payload []byte
}

type fakePub struct {
	out    chan sent
	closed chan struct{}
}

func (f *fakePub) Publish(topic string, payload []byte) error {
	f.out <- sent{topic, payload}
	return nil
}
func (f *fakePub) Close() { close(f.closed) }

func TestForwardsFramesToBroker(t *testing.T) {
	pub := &fakePub{out: make(chan sent, 4), closed: make(chan struct{})}
	dialed := make(chan string, 1)
	svc := New(func(broker, id string) (Publisher, error) {
		assert.Contains(t, id, "solarmatrix-")
		dialed <- broker
		return pub, nil
	})

	b := bus.NewBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx, b.NewConnection("telemetry")))

	app := b.NewConnection("app")
	app.Publish(app.NewMessage(topicConfigTelemetry, types.TelemetryConfig{Broker: "tcp://b:1883", Topic: "house/panel/"}, true))

	select {
	case got := <-dialed:
		assert.Equal(t, "tcp://b:1883", got)
	case <-time.After(time.Second):
		t.Fatal("never dialed")
	}

	frame := types.FrameSummary{Solar: 1500, Grid: -500, Sensor: 120, Brightness: 0.4, TS: 1}
	app.Publish(app.NewMessage(bus.T("telemetry", "frame"), frame, false))

	select {
	case got := <-pub.out:
		assert.Equal(t, "house/panel/frame", got.topic)
		var back types.FrameSummary
		require.NoError(t, json.Unmarshal(got.payload, &back))
		assert.Equal(t, frame, back)
	case <-time.After(time.Second):
		t.Fatal("frame not forwarded")
	}

	cancel()
	select {
	case <-pub.closed:
	case <-time.After(time.Second):
		t.Fatal("publisher not closed on shutdown")
	}
}

func TestDialFailureIsNotFatal(t *testing.T) {
	calls := make(chan struct{}, 1)
	svc := New(func(string, string) (Publisher, error) {
		calls <- struct{}{}
		return nil, errors.New("connection refused")
	})

	b := bus.NewBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx, b.NewConnection("telemetry")))

	app := b.NewConnection("app")
	app.Publish(app.NewMessage(topicConfigTelemetry, types.TelemetryConfig{Broker: "tcp://nowhere:1883"}, true))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("never dialed")
	}
	// frames keep flowing with no publisher
	app.Publish(app.NewMessage(bus.T("telemetry", "frame"), types.FrameSummary{}, false))
}

func TestNoBrokerNoDial(t *testing.T) {
	svc := New(func(string, string) (Publisher, error) {
		t.Fatal("dial without broker")
		return nil, nil
	})
	svc.configure(types.TelemetryConfig{})
	assert.Nil(t, svc.pub)
	assert.Equal(t, DefaultTopic, svc.prefix)
}
