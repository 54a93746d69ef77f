package fifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("transport")

// pollInterval is the delay between two attempts to open the write end of a fifo
const pollInterval = 5 * time.Millisecond

// fifoTransport implements both transport interfaces using named pipes
type fifoTransport struct{}

// NewFifoServerTransport creates a new named pipe server transport
func NewFifoServerTransport() transport.IServerTransport {
	return &fifoTransport{}
}

// NewFifoClientTransport creates a new named pipe client transport
func NewFifoClientTransport() transport.IClientTransport {
	return &fifoTransport{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport and transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *fifoTransport) GetName() string {
	return "fifo"
}

func (t *fifoTransport) Listen(endpoint string) (io.ReadCloser, error) {
	if err := makeFifo(endpoint); err != nil {
		return nil, err
	}

	// The register fifo is opened read-write: the server then holds a write end
	// itself and reads never see EOF when the last client closes its end.
	f, err := os.OpenFile(endpoint, os.O_RDWR, 0)
	if err != nil {
		_ = os.Remove(endpoint)
		return nil, fmt.Errorf("failed to open register fifo %s: %w", endpoint, err)
	}

	Logger.Infof("Listening for fifo clients on %s", endpoint)
	return &registerFile{File: f, path: endpoint}, nil
}

func (t *fifoTransport) Create(path string) (string, error) {
	if err := makeFifo(path); err != nil {
		return "", err
	}
	return path, nil
}

func (t *fifoTransport) Dial(endpoint string) (io.WriteCloser, error) {
	f, err := os.OpenFile(endpoint, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if errors.Is(err, unix.ENXIO) {
		return nil, fmt.Errorf("no server is listening on %s", endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open register fifo %s: %w", endpoint, err)
	}
	return f, nil
}

func (t *fifoTransport) OpenReader(ctx context.Context, path string) (io.ReadCloser, error) {
	type result struct {
		f   *os.File
		err error
	}

	// Opening the read end blocks until a writer shows up
	done := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		done <- result{f, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return r.f, nil
	case <-ctx.Done():
	}

	// Unblock the pending open by briefly opening the write end ourselves
	go func() {
		if w, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0); err == nil {
			_ = w.Close()
		}
		if r := <-done; r.f != nil {
			_ = r.f.Close()
		}
	}()
	return nil, ctx.Err()
}

func (t *fifoTransport) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	// A non-blocking open of the write end fails with ENXIO as long as no reader exists
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t *fifoTransport) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// registerFile removes the register fifo when it is closed
type registerFile struct {
	*os.File
	path string
}

func (r *registerFile) Close() error {
	err := r.File.Close()
	if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) {
		Logger.Warningf("Failed to remove register fifo %s: %v", r.path, rmErr)
	}
	return err
}

// makeFifo creates a named pipe at path, replacing a stale file
func makeFifo(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing fifo %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return fmt.Errorf("failed to create fifo %s: %w", path, err)
	}
	return nil
}
