package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/message"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, payload: payload})
	return nil
}

func TestHandle_PublishesProgressAndResult(t *testing.T) {
	tr := New(config.MQTTConfig{Topic: "pcast"})
	pub := &fakePublisher{}

	handler := func(_ context.Context, req *message.Request, progress func(message.Progress)) (*message.Result, error) {
		progress(message.Progress{RequestID: req.ID, State: "generating"})
		return &message.Result{RequestID: req.ID, Topic: req.Podcast.Topic, ArtifactID: "podcast_bees_20260307_140509"}, nil
	}

	tr.handle(context.Background(), pub, []byte(`{"id":"r1","podcast":{"topic":"bees"}}`), handler)

	if len(pub.msgs) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.msgs))
	}
	if pub.msgs[0].topic != "pcast/progress/r1" {
		t.Errorf("expected progress topic, got %s", pub.msgs[0].topic)
	}
	if pub.msgs[1].topic != "pcast/results/r1" {
		t.Errorf("expected result topic, got %s", pub.msgs[1].topic)
	}
	var res message.Result
	if err := json.Unmarshal(pub.msgs[1].payload, &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Topic != "bees" || res.ArtifactID == "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHandle_AssignsIDAndSource(t *testing.T) {
	tr := New(config.MQTTConfig{Topic: "pcast"})
	pub := &fakePublisher{}

	var got message.Request
	handler := func(_ context.Context, req *message.Request, _ func(message.Progress)) (*message.Result, error) {
		got = *req
		return &message.Result{RequestID: req.ID}, nil
	}
	tr.handle(context.Background(), pub, []byte(`{"podcast":{"topic":"bees"}}`), handler)

	if got.ID == "" || got.Source != "mqtt" {
		t.Errorf("expected generated id and mqtt source, got %+v", got)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].topic != "pcast/results/"+got.ID {
		t.Errorf("unexpected publishes %+v", pub.msgs)
	}
}

func TestHandle_HandlerError(t *testing.T) {
	tr := New(config.MQTTConfig{Topic: "pcast"})
	pub := &fakePublisher{}

	handler := func(context.Context, *message.Request, func(message.Progress)) (*message.Result, error) {
		return nil, errors.New("boom")
	}
	tr.handle(context.Background(), pub, []byte(`{"id":"r3"}`), handler)

	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.msgs))
	}
	if !strings.Contains(string(pub.msgs[0].payload), "boom") {
		t.Errorf("expected error in result, got %s", pub.msgs[0].payload)
	}
}

func TestHandle_BadPayload(t *testing.T) {
	tr := New(config.MQTTConfig{Topic: "pcast"})
	pub := &fakePublisher{}
	called := false
	handler := func(context.Context, *message.Request, func(message.Progress)) (*message.Result, error) {
		called = true
		return nil, nil
	}
	tr.handle(context.Background(), pub, []byte("{"), handler)
	if called || len(pub.msgs) != 0 {
		t.Errorf("expected malformed payload to be dropped")
	}
}

func TestDispatch_DropsRequestsWhenStopping(t *testing.T) {
	handler := func(_ context.Context, req *message.Request, _ func(message.Progress)) (*message.Result, error) {
		t.Errorf("handler ran for %s during shutdown", req.ID)
		return &message.Result{RequestID: req.ID}, nil
	}

	t.Run("canceled context", func(t *testing.T) {
		tr := New(config.MQTTConfig{Topic: "pcast"})
		pub := &fakePublisher{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if tr.dispatch(ctx, pub, []byte(`{"id":"late"}`), handler) {
			t.Error("expected request to be dropped")
		}
		tr.wg.Wait()
		if len(pub.msgs) != 0 {
			t.Errorf("unexpected publishes %+v", pub.msgs)
		}
	})

	t.Run("closed transport", func(t *testing.T) {
		tr := New(config.MQTTConfig{Topic: "pcast"})
		pub := &fakePublisher{}
		if err := tr.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if tr.dispatch(context.Background(), pub, []byte(`{"id":"late"}`), handler) {
			t.Error("expected request to be dropped")
		}
		tr.wg.Wait()
		if len(pub.msgs) != 0 {
			t.Errorf("unexpected publishes %+v", pub.msgs)
		}
	})
}

func TestDispatch_ShutdownWaitsForInFlight(t *testing.T) {
	tr := New(config.MQTTConfig{Topic: "pcast"})
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(_ context.Context, req *message.Request, _ func(message.Progress)) (*message.Result, error) {
		close(started)
		<-release
		return &message.Result{RequestID: req.ID}, nil
	}
	if !tr.dispatch(ctx, pub, []byte(`{"id":"r1"}`), handler) {
		t.Fatal("expected request to be accepted")
	}
	<-started

	cancel()
	tr.stop()
	// Requests arriving while draining are refused instead of joining the wait.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.dispatch(ctx, pub, []byte(`{"id":"late"}`), handler)
		}()
	}
	close(release)
	wg.Wait()
	tr.wg.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.msgs) != 1 || pub.msgs[0].topic != "pcast/results/r1" {
		t.Errorf("expected only the in-flight result, got %+v", pub.msgs)
	}
}
