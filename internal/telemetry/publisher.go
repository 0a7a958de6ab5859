// Package telemetry publishes motion node speed samples to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher receives one sample per speed report.
type Publisher interface {
	PublishSpeed(ctx context.Context, cruiseAddress string, state model.MotionState) error
	Close()
}

// SpeedSample is the JSON payload of a speed message.
type SpeedSample struct {
	CruiseAddress string  `json:"cruise_address"`
	Speed         int     `json:"speed"`
	TargetSpeed   int     `json:"target_speed"`
	Gap           float64 `json:"gap"`
	IsLeader      bool    `json:"is_leader"`
	Timestamp     int64   `json:"timestamp"`
}

// NopPublisher drops every sample.
type NopPublisher struct{}

// PublishSpeed implements Publisher.
func (NopPublisher) PublishSpeed(context.Context, string, model.MotionState) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() {}

// MQTTPublisher publishes samples at QoS 0 under <prefix>/<cruise address>/speed.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *zap.Logger
}

// NewMQTTPublisher connects to the configured broker.
func NewMQTTPublisher(cfg config.TelemetryConfig, cruiseAddress string, logger *zap.Logger) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "cruise-" + strings.ReplaceAll(cruiseAddress, ":", "-")
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(cfg.BrokerURL)
	o.SetClientID(clientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	o.SetAutoReconnect(true)
	c := mqtt.NewClient(o)

	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.BrokerURL, token.Error())
	}

	logger.Info("telemetry publisher connected",
		zap.String("broker", cfg.BrokerURL),
		zap.String("client_id", clientID))

	return &MQTTPublisher{client: c, topicPrefix: cfg.TopicPrefix, logger: logger}, nil
}

// PublishSpeed implements Publisher.
func (p *MQTTPublisher) PublishSpeed(ctx context.Context, cruiseAddress string, state model.MotionState) error {
	payload, err := EncodeSample(cruiseAddress, state, time.Now())
	if err != nil {
		return err
	}

	token := p.client.Publish(SpeedTopic(p.topicPrefix, cruiseAddress), 0, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// SpeedTopic builds the topic for one motion node. MQTT topic levels cannot carry ':'.
func SpeedTopic(prefix, cruiseAddress string) string {
	return fmt.Sprintf("%s/%s/speed", prefix, strings.ReplaceAll(cruiseAddress, ":", "_"))
}

// EncodeSample renders the JSON payload of a speed message.
func EncodeSample(cruiseAddress string, state model.MotionState, at time.Time) ([]byte, error) {
	return json.Marshal(SpeedSample{
		CruiseAddress: cruiseAddress,
		Speed:         state.Speed,
		TargetSpeed:   state.TargetSpeed,
		Gap:           state.Gap,
		IsLeader:      state.IsLeader,
		Timestamp:     at.UnixMilli(),
	})
}
