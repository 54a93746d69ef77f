package mem

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// channel is a synchronous in-memory pipe
type channel struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newChannel() *channel {
	r, w := io.Pipe()
	return &channel{r: r, w: w}
}

func (c *channel) close() {
	_ = c.r.Close()
	_ = c.w.Close()
}

// Hub is an in-memory namespace of channels. It implements both transport
// interfaces, so a server and its clients in the same process share one Hub.
type Hub struct {
	channels *xsync.MapOf[string, *channel]
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{channels: xsync.NewMapOf[string, *channel]()}
}

var (
	_ transport.IServerTransport = (*Hub)(nil)
	_ transport.IClientTransport = (*Hub)(nil)
)

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport and transport.IClientTransport)
// --------------------------------------------------------------------------

func (h *Hub) GetName() string {
	return "mem"
}

func (h *Hub) Listen(endpoint string) (io.ReadCloser, error) {
	if _, err := h.Create(endpoint); err != nil {
		return nil, err
	}
	ch, _ := h.channels.Load(endpoint)
	return &registerReader{PipeReader: ch.r, hub: h, endpoint: endpoint}, nil
}

func (h *Hub) Create(path string) (string, error) {
	if old, loaded := h.channels.LoadAndStore(path, newChannel()); loaded {
		old.close()
	}
	return path, nil
}

func (h *Hub) Dial(endpoint string) (io.WriteCloser, error) {
	ch, err := h.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	// The register pipe is shared by all clients, a client closing its end must not close it
	return sharedWriter{ch.w}, nil
}

func (h *Hub) OpenReader(_ context.Context, path string) (io.ReadCloser, error) {
	ch, err := h.lookup(path)
	if err != nil {
		return nil, err
	}
	return ch.r, nil
}

func (h *Hub) OpenWriter(_ context.Context, path string) (io.WriteCloser, error) {
	ch, err := h.lookup(path)
	if err != nil {
		return nil, err
	}
	return ch.w, nil
}

func (h *Hub) Remove(path string) error {
	if ch, ok := h.channels.LoadAndDelete(path); ok {
		ch.close()
	}
	return nil
}

// Channels returns the number of existing channels
func (h *Hub) Channels() int {
	return h.channels.Size()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (h *Hub) lookup(path string) (*channel, error) {
	ch, ok := h.channels.Load(path)
	if !ok {
		return nil, fmt.Errorf("mem channel %s: %w", path, os.ErrNotExist)
	}
	return ch, nil
}

type registerReader struct {
	*io.PipeReader
	hub      *Hub
	endpoint string
}

func (r *registerReader) Close() error {
	return r.hub.Remove(r.endpoint)
}

type sharedWriter struct {
	w *io.PipeWriter
}

func (s sharedWriter) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s sharedWriter) Close() error {
	return nil
}
