// Package telemetry logs frame summaries and fetch results from the bus and
// optionally forwards them to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"strings"

	"solarmatrix-go/bus"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/strx"
)

const DefaultTopic = "solarmatrix"

var (
	topicTelemetry       = bus.T("telemetry", "#")
	topicConfigTelemetry = bus.T("config", "telemetry")
)

type Service struct {
	dial Dialer
	log  *logx.Logger

	broker string
	prefix string
	pub    Publisher
}

// New returns a service that dials with dial, or DialMQTT when dial is nil.
func New(dial Dialer) *Service {
	if dial == nil {
		dial = DialMQTT
	}
	return &Service{dial: dial, log: logx.New("telemetry"), prefix: DefaultTopic}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	telSub := conn.Subscribe(topicTelemetry)
	defer conn.Unsubscribe(telSub)
	cfgSub := conn.Subscribe(topicConfigTelemetry)
	defer conn.Unsubscribe(cfgSub)
	defer s.closePublisher()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("stopping")
			return
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.TelemetryConfig); ok {
				s.configure(c)
			}
		case msg := <-telSub.Channel():
			s.handle(msg)
		}
	}
}

// Start the telemetry service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) configure(c types.TelemetryConfig) {
	s.prefix = strx.Coalesce(strings.Trim(c.Topic, "/"), DefaultTopic)
	if c.Broker == s.broker {
		return
	}
	s.closePublisher()
	s.broker = c.Broker
	if c.Broker == "" {
		return
	}
	pub, err := s.dial(c.Broker, ClientID())
	if err != nil {
		s.log.Warnf("mqtt %s: %v", c.Broker, err)
		return
	}
	s.pub = pub
	s.log.Infof("forwarding to %s under %s/", c.Broker, s.prefix)
}

func (s *Service) closePublisher() {
	if s.pub != nil {
		s.pub.Close()
		s.pub = nil
	}
}

func (s *Service) handle(msg *bus.Message) {
	switch v := msg.Payload.(type) {
	case types.FrameSummary:
		s.log.Infof("solar %.0f W, grid %.0f W, light %.0f, brightness %.2f",
			v.Solar, v.Grid, v.Sensor, v.Brightness)
	case types.FetchStatus:
		if v.OK {
			s.log.Debugf("fetch %s ok after %d retries", v.URL, v.Attempts)
		} else {
			s.log.Warnf("fetch %s failed after %d attempts: %s", v.URL, v.Attempts, v.Error)
		}
	}
	s.forward(msg)
}

func (s *Service) forward(msg *bus.Message) {
	if s.pub == nil || len(msg.Topic) < 2 {
		return
	}
	b, err := json.Marshal(msg.Payload)
	if err != nil {
		s.log.Debugf("encode %s: %v", msg.Topic, err)
		return
	}
	topic := s.prefix + "/" + strings.Join(msg.Topic[1:], "/")
	if err := s.pub.Publish(topic, b); err != nil {
		s.log.Debugf("mqtt publish: %v", err)
	}
}
