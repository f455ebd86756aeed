package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/event"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Bus {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	b, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return b
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := testConnect(t)
	subject := "reviews.decision.approved"

	want := event.DecisionRecorded{
		ResultID:      "r-" + t.Name(),
		TransactionID: "t000001",
		Final:         "approved",
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var (
		mu  sync.Mutex
		got []event.DecisionRecorded
	)
	done := make(chan struct{})
	cancel, err := b.Subscribe(context.Background(), subject, func(_ context.Context, _ string, msg []byte) error {
		var ev event.DecisionRecorded
		if err := json.Unmarshal(msg, &ev); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		if ev.ResultID == want.ResultID {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := b.Publish(context.Background(), subject, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, ev := range got {
		if ev.ResultID == want.ResultID && ev.Final == want.Final {
			found = true
		}
	}
	if !found {
		t.Fatalf("published event not received, got %+v", got)
	}
}

func TestBus_IsConnected(t *testing.T) {
	b := testConnect(t)
	if !b.IsConnected() {
		t.Fatal("expected connected bus")
	}
}
