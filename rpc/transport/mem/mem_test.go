package mem

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	transporttesting "github.com/ValentinKolb/sKV/rpc/transport/testing"
)

func TestMemTransport(t *testing.T) {
	transporttesting.RunTransportTests(t, "mem", func(t *testing.T) transporttesting.Setup {
		hub := NewHub()
		var n atomic.Int64
		name := func(t *testing.T, prefix string) string {
			return fmt.Sprintf("%s-%d", prefix, n.Add(1))
		}
		return transporttesting.Setup{
			Server: hub,
			Client: hub,
			Endpoint: func(t *testing.T) string {
				return name(t, "register")
			},
			Channel: name,
		}
	})
}

func TestRemoveClosesChannel(t *testing.T) {
	hub := NewHub()
	if _, err := hub.Create("resp"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	r, err := hub.OpenReader(context.Background(), "resp")
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	if err := hub.Remove("resp"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := r.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected Read on a removed channel to fail")
	}
	if hub.Channels() != 0 {
		t.Fatalf("expected no channels, got %d", hub.Channels())
	}
	if _, err := hub.OpenWriter(context.Background(), "resp"); err == nil {
		t.Fatal("expected OpenWriter on a removed channel to fail")
	}
}
