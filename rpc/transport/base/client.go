package base

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// clientTransport implements transport.IClientTransport on top of a connector
type clientTransport struct {
	connector IConnector
	listeners *xsync.MapOf[string, net.Listener]
}

// NewBaseClientTransport creates a client transport for the given connector
func NewBaseClientTransport(connector IConnector) transport.IClientTransport {
	return &clientTransport{
		connector: connector,
		listeners: xsync.NewMapOf[string, net.Listener](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) GetName() string {
	return t.connector.GetName()
}

func (t *clientTransport) Create(path string) (string, error) {
	listener, err := t.connector.Listen(path)
	if err != nil {
		return "", fmt.Errorf("failed to create channel %s: %w", path, err)
	}
	name := listener.Addr().String()
	if old, loaded := t.listeners.LoadAndStore(name, listener); loaded {
		_ = old.Close()
	}
	return name, nil
}

func (t *clientTransport) Dial(endpoint string) (io.WriteCloser, error) {
	conn, err := t.connector.Dial(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	return conn, nil
}

func (t *clientTransport) OpenReader(ctx context.Context, name string) (io.ReadCloser, error) {
	return t.accept(ctx, name)
}

func (t *clientTransport) OpenWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	return t.accept(ctx, name)
}

func (t *clientTransport) Remove(name string) error {
	listener, ok := t.listeners.LoadAndDelete(name)
	if !ok {
		return nil
	}
	return listener.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) accept(ctx context.Context, name string) (net.Conn, error) {
	listener, ok := t.listeners.Load(name)
	if !ok {
		return nil, fmt.Errorf("channel %s was not created", name)
	}
	return acceptContext(ctx, listener)
}
