package natsutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
)

type testMsg struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func runServer(t *testing.T) *server.Server {
	t.Helper()
	s := natstest.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)
	return s
}

func TestNatsHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected traceparent, got %q", got)
	}

	keys := carrier.Keys()
	if len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestNatsHeaderCarrierNilHeader(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}
}

func TestPublisher_DeliversJSON(t *testing.T) {
	s := runServer(t)

	sub, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sub.Close()

	ch := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("recipes.recommendations", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	pub, err := Connect[testMsg](s.ClientURL(), "recipes.recommendations")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := pub.Publish(context.Background(), testMsg{Name: "test", Value: 42}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case msg := <-ch:
		var got testMsg
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Name != "test" || got.Value != 42 {
			t.Fatalf("unexpected message %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	s := runServer(t)
	url := s.ClientURL()
	s.Shutdown()

	if _, err := Connect[testMsg](url, "x"); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestPublish_MarshalError(t *testing.T) {
	s := runServer(t)
	nc, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	if err := Publish(context.Background(), nc, "x", func() {}); err == nil {
		t.Fatal("expected marshal error")
	}
}
