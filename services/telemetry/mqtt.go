package telemetry

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"solarmatrix-go/errcode"
)

// Publisher forwards encoded telemetry off the device.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// Dialer opens a Publisher for a broker URL such as tcp://host:1883.
type Dialer func(broker, clientID string) (Publisher, error)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

type mqttPublisher struct {
	c mqtt.Client
}

// DialMQTT connects with auto-reconnect so a broker outage only drops messages.
func DialMQTT(broker, clientID string) (Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetCleanSession(true)
	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, &errcode.E{C: errcode.Transport, Op: "mqtt connect", Msg: broker + ": timeout"}
	}
	if err := tok.Error(); err != nil {
		return nil, errcode.Wrap(errcode.Transport, "mqtt connect", err)
	}
	return &mqttPublisher{c: c}, nil
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	tok := p.c.Publish(topic, 0, false, payload)
	if !tok.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	return tok.Error()
}

func (p *mqttPublisher) Close() { p.c.Disconnect(250) }

// ClientID is unique per process so two panels never kick each other off the broker.
func ClientID() string { return "solarmatrix-" + uuid.NewString() }
