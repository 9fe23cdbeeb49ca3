package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// fakeMessage implements mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type fakeRecorder struct {
	mu          sync.Mutex
	samples     []*models.SensorSample
	activations []*models.ActuatorActivationEvent
	transports  []string
}

func (r *fakeRecorder) RecordSample(ctx context.Context, s *models.SensorSample, transport string) (*models.ThresholdBreachEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	r.transports = append(r.transports, transport)
	return nil, nil
}

func (r *fakeRecorder) RecordActivation(ctx context.Context, e *models.ActuatorActivationEvent, transport string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, e)
	r.transports = append(r.transports, transport)
	return nil
}

func newTestSubscriber(rec Recorder) *Subscriber {
	s := NewSubscriber(nil, rec, MQTTConfig{})
	s.now = func() time.Time { return ts }
	return s
}

func TestSubscriber_Topics(t *testing.T) {
	s := NewSubscriber(nil, &fakeRecorder{}, MQTTConfig{TopicPrefix: "farm"})
	want := []string{"farm/+/temperature", "farm/+/humidity", "farm/+/actuator"}
	got := s.Topics()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topic %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubscriber_HandleSensorMessages(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSubscriber(rec)

	s.HandleMessage(nil, &fakeMessage{topic: "incubator/2/temperature", payload: []byte("29.75")})
	s.HandleMessage(nil, &fakeMessage{topic: "incubator/3/humidity", payload: []byte(" 71\n")})

	if len(rec.samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(rec.samples))
	}
	first := rec.samples[0]
	if first.ComponentID != 2 || first.Metric != models.MetricTemperature || first.Value != 29.75 {
		t.Errorf("unexpected sample: %+v", first)
	}
	if !first.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want receipt time", first.Timestamp)
	}
	if rec.samples[1].Metric != models.MetricHumidity || rec.samples[1].Value != 71 {
		t.Errorf("unexpected sample: %+v", rec.samples[1])
	}
	for _, tr := range rec.transports {
		if tr != TransportMQTT {
			t.Errorf("transport = %q", tr)
		}
	}
}

func TestSubscriber_HandleActuatorMessages(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSubscriber(rec)

	for _, payload := range []string{"1", "on", "0", "off", ""} {
		s.HandleMessage(nil, &fakeMessage{topic: "incubator/5/actuator", payload: []byte(payload)})
	}

	if len(rec.activations) != 2 {
		t.Fatalf("expected 2 activations, got %d", len(rec.activations))
	}
	if rec.activations[0].ActuatorComponentID != 5 {
		t.Errorf("component = %d", rec.activations[0].ActuatorComponentID)
	}
}

func TestSubscriber_IgnoresMalformed(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSubscriber(rec)

	msgs := []*fakeMessage{
		{topic: "incubator/abc/temperature", payload: []byte("30")},
		{topic: "incubator/0/temperature", payload: []byte("30")},
		{topic: "other/1/temperature", payload: []byte("30")},
		{topic: "incubator/1/pressure", payload: []byte("30")},
		{topic: "incubator/1/temperature", payload: []byte("hot")},
		{topic: "incubator/1/temperature/extra", payload: []byte("30")},
	}
	for _, m := range msgs {
		s.HandleMessage(nil, m)
	}

	if len(rec.samples) != 0 || len(rec.activations) != 0 {
		t.Errorf("malformed messages should be dropped: %d samples, %d activations", len(rec.samples), len(rec.activations))
	}
}
