package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/rpc/transport"
)

// serverTransport implements transport.IServerTransport on top of a connector
type serverTransport struct {
	connector IConnector
}

// NewBaseServerTransport creates a server transport for the given connector
func NewBaseServerTransport(connector IConnector) transport.IServerTransport {
	return &serverTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) GetName() string {
	return t.connector.GetName()
}

func (t *serverTransport) Listen(endpoint string) (io.ReadCloser, error) {
	listener, err := t.connector.Listen(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create register listener: %w", err)
	}

	Logger.Infof("Listening for %s clients on %s", t.connector.GetName(), listener.Addr())

	pr, pw := io.Pipe()
	r := &registerReader{listener: listener, pr: pr, pw: pw}
	go r.acceptLoop()
	return r, nil
}

func (t *serverTransport) OpenReader(ctx context.Context, path string) (io.ReadCloser, error) {
	return t.connector.Dial(ctx, path)
}

func (t *serverTransport) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	return t.connector.Dial(ctx, path)
}

// --------------------------------------------------------------------------
// Register Reader
// --------------------------------------------------------------------------

// registerReader merges all connections of the register listener into one stream
type registerReader struct {
	listener net.Listener
	pr       *io.PipeReader
	pw       *io.PipeWriter

	mu        sync.Mutex // serializes forwarded requests
	closeOnce sync.Once
}

func (r *registerReader) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

func (r *registerReader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.listener.Close()
		_ = r.pr.Close()
	})
	return err
}

func (r *registerReader) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				_ = r.pw.Close()
				return
			}
			Logger.Warningf("Register accept error: %v", err)
			continue
		}
		go r.forward(conn)
	}
}

// forward reads everything a client wrote on conn and passes it on as a whole
func (r *registerReader) forward(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(registerTimeout))
	data, err := io.ReadAll(io.LimitReader(conn, maxRegisterRequest))
	if err != nil {
		Logger.Warningf("Failed to read register request: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.pw.Write(data); err != nil {
		Logger.Debugf("Dropped register request, listener closed: %v", err)
	}
}
