// Package mqtt implements the MQTT transport for pcast.
//
// MQTT is well-suited for IoT devices and lightweight pub/sub messaging.
// Requests arrive as JSON on <topic>/requests. Progress updates for a request
// are published to <topic>/progress/<id> and the final result to
// <topic>/results/<id>.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/message"
	"github.com/4xachi/pcast/internal/transport"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	quiesce        = 250 // ms granted to in-flight publishes on disconnect
)

// publisher sends one payload to a topic.
type publisher interface {
	Publish(topic string, payload []byte) error
}

// clientPublisher publishes through a connected paho client.
type clientPublisher struct {
	client paho.Client
}

func (p clientPublisher) Publish(topic string, payload []byte) error {
	tok := p.client.Publish(topic, qos, false, payload)
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	return tok.Error()
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg    config.MQTTConfig
	client paho.Client

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new MQTT transport.
func New(cfg config.MQTTConfig) *Transport {
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

func (t *Transport) requestTopic() string          { return t.cfg.Topic + "/requests" }
func (t *Transport) progressTopic(id string) string { return t.cfg.Topic + "/progress/" + id }
func (t *Transport) resultTopic(id string) string   { return t.cfg.Topic + "/results/" + id }

// Listen connects to the broker, subscribes to the request topic and serves
// requests until the context is cancelled.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	clientID := t.cfg.ClientID
	if clientID == "" {
		clientID = "pcast-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(clientID).
		SetUsername(t.cfg.Username).
		SetPassword(t.cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false)

	// Subscribing on connect restores the subscription after a reconnect.
	opts.SetOnConnectHandler(func(c paho.Client) {
		pub := clientPublisher{client: c}
		tok := c.Subscribe(t.requestTopic(), qos, func(_ paho.Client, m paho.Message) {
			t.dispatch(ctx, pub, m.Payload(), handler)
		})
		if tok.WaitTimeout(connectTimeout) && tok.Error() != nil {
			slog.Error("mqtt subscribe failed", "topic", t.requestTopic(), "error", tok.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Warn("mqtt connection lost", "broker", t.cfg.Broker, "error", err)
	})

	client := paho.NewClient(opts)
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timed out", t.cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", t.cfg.Broker, err)
	}

	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "topic", t.requestTopic())
	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	t.stop()
	t.wg.Wait()
	client.Disconnect(quiesce)
	return nil
}

// dispatch starts handling one request in the background. It reports false
// and drops the request once the transport is stopping or ctx is done.
func (t *Transport) dispatch(ctx context.Context, pub publisher, payload []byte, handler transport.Handler) bool {
	t.mu.Lock()
	if t.stopping || ctx.Err() != nil {
		t.mu.Unlock()
		slog.Debug("mqtt request dropped during shutdown")
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		t.handle(ctx, pub, payload, handler)
	}()
	return true
}

// stop refuses new requests and unsubscribes from the request topic. The
// connection stays up so in-flight requests can still publish their results.
func (t *Transport) stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopping = true
		client := t.client
		t.mu.Unlock()

		if client == nil || !client.IsConnected() {
			return
		}
		tok := client.Unsubscribe(t.requestTopic())
		if tok.WaitTimeout(connectTimeout) && tok.Error() != nil {
			slog.Warn("mqtt unsubscribe failed", "topic", t.requestTopic(), "error", tok.Error())
		}
	})
}

// handle decodes one request, runs it and publishes progress and the result.
func (t *Transport) handle(ctx context.Context, pub publisher, payload []byte, handler transport.Handler) {
	var req message.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		slog.Warn("mqtt request rejected", "error", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = "mqtt"
	}

	progress := func(p message.Progress) {
		data, err := json.Marshal(p)
		if err != nil {
			return
		}
		if err := pub.Publish(t.progressTopic(req.ID), data); err != nil {
			slog.Debug("mqtt progress publish failed", "request_id", req.ID, "error", err)
		}
	}

	result, err := handler(ctx, &req, progress)
	if err != nil {
		result = &message.Result{RequestID: req.ID, Error: err.Error()}
	}

	data, err := json.Marshal(result)
	if err != nil {
		slog.Error("mqtt result encoding failed", "request_id", req.ID, "error", err)
		return
	}
	if err := pub.Publish(t.resultTopic(req.ID), data); err != nil {
		slog.Error("mqtt result publish failed", "request_id", req.ID, "error", err)
	}
}

// Close stops accepting requests. Listen disconnects from the broker once the
// in-flight requests have answered.
func (t *Transport) Close() error {
	t.stop()
	return nil
}
