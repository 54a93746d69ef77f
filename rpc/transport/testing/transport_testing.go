package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/transport"
)

// testTimeout bounds every blocking step of the suite
const testTimeout = 5 * time.Second

// Setup describes a transport under test
type Setup struct {
	Server transport.IServerTransport
	Client transport.IClientTransport
	// Endpoint returns an unused register endpoint
	Endpoint func(t *testing.T) string
	// Channel returns an unused channel path
	Channel func(t *testing.T, name string) string
	// BlockingOpen is set if the client blocks opening a channel until the server opened it
	BlockingOpen bool
}

// SetupFactory creates a fresh Setup for every test
type SetupFactory func(t *testing.T) Setup

// TempChannel returns a path in a fresh, short temporary directory.
// Unix socket paths are limited to about 100 bytes, which t.TempDir easily exceeds.
func TempChannel(t *testing.T, name string) string {
	dir, err := os.MkdirTemp("", "skv")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}

// RunTransportTests runs the test suite for a transport implementation
func RunTransportTests(t *testing.T, name string, factory SetupFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SessionSetup", func(t *testing.T) {
			testSessionSetup(t, factory(t))
		})

		t.Run("ConcurrentRegister", func(t *testing.T) {
			testConcurrentRegister(t, factory(t))
		})

		t.Run("DialWithoutServer", func(t *testing.T) {
			testDialWithoutServer(t, factory(t))
		})

		t.Run("CloseUnblocksRegister", func(t *testing.T) {
			testCloseUnblocksRegister(t, factory(t))
		})

		t.Run("CancelOpen", func(t *testing.T) {
			s := factory(t)
			if !s.BlockingOpen {
				t.Skip("opening a channel does not block")
			}
			testCancelOpen(t, s)
		})
	})
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func testSessionSetup(t *testing.T, s Setup) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	endpoint := s.Endpoint(t)
	register, err := s.Server.Listen(endpoint)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer register.Close()

	resp := create(t, s.Client, s.Channel(t, "resp"))
	req := create(t, s.Client, s.Channel(t, "req"))
	notif := create(t, s.Client, s.Channel(t, "notif"))

	// Server side of the session
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- func() error {
			if got := readN(register, 5); got != "hello" {
				return fmt.Errorf("register: expected 'hello', got %q", got)
			}
			w, err := s.Server.OpenWriter(ctx, resp)
			if err != nil {
				return fmt.Errorf("open resp: %w", err)
			}
			defer w.Close()
			if _, err := w.Write([]byte("ack")); err != nil {
				return fmt.Errorf("write resp: %w", err)
			}
			r, err := s.Server.OpenReader(ctx, req)
			if err != nil {
				return fmt.Errorf("open req: %w", err)
			}
			defer r.Close()
			if got := readN(r, 4); got != "ping" {
				return fmt.Errorf("req: expected 'ping', got %q", got)
			}
			n, err := s.Server.OpenWriter(ctx, notif)
			if err != nil {
				return fmt.Errorf("open notif: %w", err)
			}
			if _, err := n.Write([]byte("note")); err != nil {
				return fmt.Errorf("write notif: %w", err)
			}
			return n.Close()
		}()
	}()

	// Client side of the session
	dial, err := s.Client.Dial(endpoint)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if _, err := dial.Write([]byte("hello")); err != nil {
		t.Fatalf("register write failed: %v", err)
	}
	_ = dial.Close()

	respR, err := s.Client.OpenReader(ctx, resp)
	if err != nil {
		t.Fatalf("open resp failed: %v", err)
	}
	defer respR.Close()
	if got := readN(respR, 3); got != "ack" {
		t.Fatalf("expected 'ack', got %q", got)
	}

	reqW, err := s.Client.OpenWriter(ctx, req)
	if err != nil {
		t.Fatalf("open req failed: %v", err)
	}
	defer reqW.Close()
	if _, err := reqW.Write([]byte("ping")); err != nil {
		t.Fatalf("req write failed: %v", err)
	}

	notifR, err := s.Client.OpenReader(ctx, notif)
	if err != nil {
		t.Fatalf("open notif failed: %v", err)
	}
	defer notifR.Close()
	rest, err := io.ReadAll(notifR)
	if err != nil {
		t.Fatalf("notif read failed: %v", err)
	}
	if string(rest) != "note" {
		t.Fatalf("expected 'note' followed by EOF, got %q", rest)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("server side did not finish")
	}

	for _, name := range []string{resp, req, notif} {
		if err := s.Client.Remove(name); err != nil {
			t.Errorf("Remove(%s) failed: %v", name, err)
		}
	}
}

func testConcurrentRegister(t *testing.T, s Setup) {
	const clients = 16
	const size = 64

	endpoint := s.Endpoint(t)
	register, err := s.Server.Listen(endpoint)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer register.Close()

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := s.Client.Dial(endpoint)
			if err != nil {
				t.Errorf("client %d: Dial failed: %v", i, err)
				return
			}
			defer w.Close()
			msg := bytes.Repeat([]byte{byte('a' + i)}, size)
			if _, err := w.Write(msg); err != nil {
				t.Errorf("client %d: write failed: %v", i, err)
			}
		}(i)
	}

	seen := make(map[byte]bool)
	buf := make([]byte, size)
	for i := 0; i < clients; i++ {
		if _, err := io.ReadFull(register, buf); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if !bytes.Equal(buf, bytes.Repeat(buf[:1], size)) {
			t.Fatalf("request %d is interleaved: %q", i, buf)
		}
		if seen[buf[0]] {
			t.Fatalf("request of client %c delivered twice", buf[0])
		}
		seen[buf[0]] = true
	}
	wg.Wait()
}

func testDialWithoutServer(t *testing.T, s Setup) {
	if _, err := s.Client.Dial(s.Endpoint(t)); err == nil {
		t.Fatal("expected Dial without a listening server to fail")
	}
}

func testCloseUnblocksRegister(t *testing.T, s Setup) {
	register, err := s.Server.Listen(s.Endpoint(t))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := register.Read(make([]byte, 1))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := register.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Read on a closed register channel to fail")
		}
	case <-time.After(testTimeout):
		t.Fatal("Close did not unblock the pending Read")
	}
}

func testCancelOpen(t *testing.T, s Setup) {
	name := create(t, s.Client, s.Channel(t, "resp"))
	defer s.Client.Remove(name)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	r, err := s.Client.OpenReader(ctx, name)
	if err == nil {
		_ = r.Close()
		t.Fatal("expected OpenReader without a peer to fail")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > testTimeout {
		t.Fatalf("OpenReader returned after %v", elapsed)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func create(t *testing.T, c transport.IClientTransport, path string) string {
	t.Helper()
	name, err := c.Create(path)
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", path, err)
	}
	return name
}

func readN(r io.Reader, n int) string {
	buf := make([]byte, n)
	read, _ := io.ReadFull(r, buf)
	return string(buf[:read])
}
