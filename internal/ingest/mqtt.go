package ingest

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// MQTTConfig holds broker and topic settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// TopicPrefix is the first topic level (default: "incubator"). Devices
	// publish to <prefix>/<component id>/temperature|humidity|actuator.
	TopicPrefix string
	QoS         byte
	// HandleTimeout bounds storing one message (default: 10s).
	HandleTimeout time.Duration
	// TLS is used for ssl:// and tls:// brokers; nil means plain TCP.
	TLS *tls.Config
}

// Subscriber feeds MQTT sensor traffic into a Recorder.
// Payloads are plain numbers; for actuator topics any non-zero value or
// "on" marks an activation. Timestamps are assigned on receipt.
type Subscriber struct {
	client   mqtt.Client
	recorder Recorder
	config   MQTTConfig
	now      func() time.Time
}

// NewMQTTClient connects to the broker with auto-reconnect.
func NewMQTTClient(config MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	if config.TLS != nil {
		opts.SetTLSConfig(config.TLS)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("mqtt connected: %s", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return client, nil
}

// NewSubscriber creates a subscriber. The client may be nil in tests that
// only drive HandleMessage.
func NewSubscriber(client mqtt.Client, recorder Recorder, config MQTTConfig) *Subscriber {
	if config.TopicPrefix == "" {
		config.TopicPrefix = "incubator"
	}
	if config.HandleTimeout <= 0 {
		config.HandleTimeout = 10 * time.Second
	}
	return &Subscriber{
		client:   client,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

// Topics returns the subscription filters.
func (s *Subscriber) Topics() []string {
	p := s.config.TopicPrefix
	return []string{
		p + "/+/temperature",
		p + "/+/humidity",
		p + "/+/actuator",
	}
}

// Subscribe registers the handler for every sensor topic.
func (s *Subscriber) Subscribe() error {
	filters := make(map[string]byte)
	for _, t := range s.Topics() {
		filters[t] = s.config.QoS
	}

	token := s.client.SubscribeMultiple(filters, s.HandleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe: %w", token.Error())
	}
	log.Printf("mqtt subscribed: %s", strings.Join(s.Topics(), ", "))
	return nil
}

// Close unsubscribes and disconnects.
func (s *Subscriber) Close() {
	if s.client == nil {
		return
	}
	s.client.Unsubscribe(s.Topics()...).WaitTimeout(time.Second)
	s.client.Disconnect(250)
}

// HandleMessage is the paho message callback.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := s.handle(msg.Topic(), msg.Payload()); err != nil {
		log.Printf("mqtt message error: topic=%s: %v", msg.Topic(), err)
	}
}

func (s *Subscriber) handle(topic string, payload []byte) error {
	componentID, kind, err := s.parseTopic(topic)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.HandleTimeout)
	defer cancel()

	received := s.now().UTC()
	text := strings.TrimSpace(string(payload))

	if kind == "actuator" {
		if !activationPayload(text) {
			return nil
		}
		return s.recorder.RecordActivation(ctx, &models.ActuatorActivationEvent{
			Timestamp:           received,
			ActuatorComponentID: componentID,
		}, TransportMQTT)
	}

	metric, err := models.ParseMetricKind(kind)
	if err != nil {
		return err
	}

	var value float64
	if _, err := fmt.Sscanf(text, "%f", &value); err != nil {
		return fmt.Errorf("parse %s value %q: %w", metric, text, err)
	}

	_, err = s.recorder.RecordSample(ctx, &models.SensorSample{
		Timestamp:   received,
		ComponentID: componentID,
		Metric:      metric,
		Value:       value,
	}, TransportMQTT)
	return err
}

// parseTopic splits <prefix>/<id>/<kind>.
func (s *Subscriber) parseTopic(topic string) (int, string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != s.config.TopicPrefix {
		return 0, "", fmt.Errorf("unexpected topic %q", topic)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid component id %q", parts[1])
	}
	return id, parts[2], nil
}

func activationPayload(text string) bool {
	switch strings.ToLower(text) {
	case "on", "true":
		return true
	case "off", "false", "":
		return false
	}
	v, err := strconv.ParseFloat(text, 64)
	return err == nil && v != 0
}
