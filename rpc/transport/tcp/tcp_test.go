package tcp

import (
	"net"
	"testing"

	transporttesting "github.com/ValentinKolb/sKV/rpc/transport/testing"
)

// freeAddress returns a loopback address that was free a moment ago
func freeAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestTCPTransport(t *testing.T) {
	transporttesting.RunTransportTests(t, "tcp", func(t *testing.T) transporttesting.Setup {
		return transporttesting.Setup{
			Server:   NewTCPServerTransport(),
			Client:   NewTCPClientTransport(),
			Endpoint: freeAddress,
			Channel: func(t *testing.T, name string) string {
				return name
			},
			BlockingOpen: true,
		}
	})
}

func TestCreateResolvesAddress(t *testing.T) {
	c := NewTCPClientTransport()
	name, err := c.Create("resp-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Remove(name)

	host, port, err := net.SplitHostPort(name)
	if err != nil {
		t.Fatalf("expected a host:port name, got %q", name)
	}
	if host != "127.0.0.1" || port == "0" {
		t.Fatalf("expected a resolved loopback address, got %q", name)
	}
}
