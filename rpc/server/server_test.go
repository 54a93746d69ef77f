package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/bucket"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport/mem"
)

const waitTimeout = 2 * time.Second

// testEnv is a server with an in-memory transport serving a local store
type testEnv struct {
	srv   *Server
	store store.IStore
	hub   *mem.Hub
	codec serializer.ICodec
	stop  func() error
}

func newTestEnv(t *testing.T, sessions, maxSubscriptions int, opts ...func(*Server)) *testEnv {
	t.Helper()

	st := lstore.NewLocalStore(func(n db.INotifier) db.KVDB {
		return bucket.NewBucketDB(&bucket.DBOptions{Notifier: n})
	}, lstore.Options{MaxSubscriptions: maxSubscriptions})

	config := common.DefaultServerConfig()
	config.Endpoint = "register"
	config.Sessions = sessions
	config.MaxSubscriptions = maxSubscriptions

	hub := mem.NewHub()
	codec := serializer.NewFixedCodec(config.MaxStringLength, config.MaxPathLength)
	srv := NewRPCServer(config, st, hub, codec)
	for _, opt := range opts {
		opt(srv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	// Wait for the register channel
	eventually(t, "register channel", func() bool { return hub.Channels() > 0 })

	env := &testEnv{srv: srv, store: st, hub: hub, codec: codec}
	var stopped bool
	env.stop = func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-served:
			return err
		case <-time.After(waitTimeout):
			return errors.New("Serve did not return")
		}
	}
	t.Cleanup(func() {
		if err := env.stop(); err != nil {
			t.Errorf("stop failed: %v", err)
		}
		_ = st.Close()
	})
	return env
}

func (e *testEnv) newClient(id string) client.IClient {
	return client.NewRPCClient(common.ClientConfig{
		ClientID:      id,
		Endpoint:      "register",
		MaxPathLength: 40,
	}, e.hub, e.codec)
}

func (e *testEnv) connect(t *testing.T, id string) client.IClient {
	t.Helper()
	c := e.newClient(id)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("client %s: Connect failed: %v", id, err)
	}
	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func expectChange(t *testing.T, c client.IClient, want db.Change) {
	t.Helper()
	select {
	case got, ok := <-c.Notifications():
		if !ok {
			t.Fatalf("notification channel closed, expected %+v", want)
		}
		if got != want {
			t.Fatalf("expected notification %+v, got %+v", want, got)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for notification %+v", want)
	}
}

func expectClosed(t *testing.T, c client.IClient) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-c.Notifications():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("notification channel was not closed")
		}
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, 2, 10)
	c := env.connect(t, "c1")

	if env.srv.ActiveSessions() != 1 {
		t.Fatalf("expected 1 active session, got %d", env.srv.ActiveSessions())
	}

	status, err := c.Subscribe("a")
	if err != nil || status != common.StatusSubscribeMissing {
		t.Fatalf("Subscribe(a) on a missing key: status %d, err %v", status, err)
	}

	if err := env.store.Write([]db.Pair{{Key: "a", Value: "1"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	expectChange(t, c, db.Change{Key: "a", Value: "1"})

	status, err = c.Subscribe("a")
	if err != nil || status != common.StatusSubscribeExisted {
		t.Fatalf("Subscribe(a) on an existing key: status %d, err %v", status, err)
	}

	status, err = c.Unsubscribe("a")
	if err != nil || status != common.StatusUnsubscribeRemoved {
		t.Fatalf("Unsubscribe(a): status %d, err %v", status, err)
	}
	status, err = c.Unsubscribe("a")
	if err != nil || status != common.StatusUnsubscribeMissing {
		t.Fatalf("second Unsubscribe(a): status %d, err %v", status, err)
	}

	// No notification after unsubscribing
	if err := env.store.Write([]db.Pair{{Key: "a", Value: "2"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	expectClosed(t, c)
	eventually(t, "session teardown", func() bool { return env.srv.ActiveSessions() == 0 })

	if _, err := c.Subscribe("a"); !errors.Is(err, store.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized after Disconnect, got %v", err)
	}
	if env.hub.Channels() != 1 {
		t.Fatalf("expected only the register channel to remain, got %d channels", env.hub.Channels())
	}
}

func TestDeleteEndsSubscription(t *testing.T) {
	env := newTestEnv(t, 1, 1)
	c := env.connect(t, "c1")
	defer c.Disconnect()

	if status, err := c.Subscribe("k"); err != nil || status != common.StatusSubscribeMissing {
		t.Fatalf("Subscribe(k): status %d, err %v", status, err)
	}
	_ = env.store.Write([]db.Pair{{Key: "k", Value: "v"}})
	expectChange(t, c, db.Change{Key: "k", Value: "v"})

	_, _ = env.store.Delete([]string{"k"})
	expectChange(t, c, db.Change{Key: "k", Deleted: true})

	// The slot of the ended subscription is free again
	eventually(t, "freed subscription slot", func() bool {
		status, err := c.Subscribe("other")
		return err == nil && status == common.StatusSubscribeMissing
	})
}

func TestSubscriptionCapacity(t *testing.T) {
	env := newTestEnv(t, 1, 2)
	c := env.connect(t, "c1")
	defer c.Disconnect()

	for _, key := range []string{"a", "b"} {
		if status, err := c.Subscribe(key); err != nil || status != common.StatusSubscribeMissing {
			t.Fatalf("Subscribe(%s): status %d, err %v", key, status, err)
		}
	}

	status, err := c.Subscribe("c")
	if err != nil {
		t.Fatalf("Subscribe(c) failed: %v", err)
	}
	if status != common.StatusSubscribeCapacity {
		t.Fatalf("expected status %d for the third subscription, got %d", common.StatusSubscribeCapacity, status)
	}

	// The rejected subscription left no state behind
	_ = env.store.Write([]db.Pair{{Key: "c", Value: "1"}, {Key: "a", Value: "1"}})
	expectChange(t, c, db.Change{Key: "a", Value: "1"})
	select {
	case change := <-c.Notifications():
		t.Fatalf("unexpected notification %+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientSideCapacity(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	c := client.NewRPCClient(common.ClientConfig{
		ClientID:         "c1",
		Endpoint:         "register",
		MaxSubscriptions: 1,
	}, env.hub, env.codec)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if _, err := c.Subscribe("a"); err != nil {
		t.Fatalf("Subscribe(a) failed: %v", err)
	}
	status, err := c.Subscribe("b")
	if !errors.Is(err, store.ErrCapacityExceeded) || status != common.StatusSubscribeCapacity {
		t.Fatalf("expected client side capacity error, got status %d, err %v", status, err)
	}
	// Resubscribing an already subscribed key does not count
	if _, err := c.Subscribe("a"); err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
}

func TestAdmissionBackpressure(t *testing.T) {
	env := newTestEnv(t, 2, 10)
	c1 := env.connect(t, "c1")
	c2 := env.connect(t, "c2")
	defer c2.Disconnect()

	c3 := env.newClient("c3")
	connected := make(chan error, 1)
	go func() { connected <- c3.Connect(context.Background()) }()

	select {
	case err := <-connected:
		t.Fatalf("third client was admitted to a pool of two (err %v)", err)
	case <-time.After(100 * time.Millisecond):
	}
	if n := env.srv.ActiveSessions(); n != 2 {
		t.Fatalf("expected 2 active sessions, got %d", n)
	}

	if err := c1.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	select {
	case err := <-connected:
		if err != nil {
			t.Fatalf("third client failed to connect: %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("third client was not admitted after a session ended")
	}
	defer c3.Disconnect()

	if status, err := c3.Subscribe("x"); err != nil || status != common.StatusSubscribeMissing {
		t.Fatalf("third client Subscribe: status %d, err %v", status, err)
	}
}

func TestConnectCanceledWhileWaiting(t *testing.T) {
	env := newTestEnv(t, 1, 10)
	c1 := env.connect(t, "c1")
	defer c1.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := env.newClient("c2").Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDisconnectAll(t *testing.T) {
	env := newTestEnv(t, 2, 10)
	c1 := env.connect(t, "c1")
	c2 := env.connect(t, "c2")
	for _, c := range []client.IClient{c1, c2} {
		if _, err := c.Subscribe("k"); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	if n := env.srv.DisconnectAll(); n != 2 {
		t.Fatalf("expected 2 disconnected sessions, got %d", n)
	}
	expectClosed(t, c1)
	expectClosed(t, c2)
	eventually(t, "session teardown", func() bool { return env.srv.ActiveSessions() == 0 })

	// All subscriptions were swept
	info, err := env.store.GetDBInfo()
	if err != nil {
		t.Fatalf("GetDBInfo failed: %v", err)
	}
	if info.Subscriptions != 0 {
		t.Fatalf("expected no subscriptions after DisconnectAll, got %d", info.Subscriptions)
	}

	_ = c1.Close()
	_ = c2.Close()

	// The server keeps admitting clients
	c3 := env.connect(t, "c3")
	if err := c3.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
}

// disconnectingAdapter disconnects all sessions while the first request is handled
type disconnectingAdapter struct {
	IRPCServerAdapter
	srv  *Server
	once sync.Once
}

func (a *disconnectingAdapter) Handle(req *common.Message, id db.SubscriberID, st store.IStore) *common.Message {
	a.once.Do(func() { a.srv.DisconnectAll() })
	return a.IRPCServerAdapter.Handle(req, id, st)
}

func TestDisconnectAllDuringSubscribe(t *testing.T) {
	env := newTestEnv(t, 1, 10, func(s *Server) {
		s.adapter = &disconnectingAdapter{IRPCServerAdapter: s.adapter, srv: s}
	})
	if err := env.store.Write([]db.Pair{{Key: "a", Value: "1"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	c := env.connect(t, "c1")
	if _, err := c.Subscribe("a"); err == nil {
		t.Fatal("expected Subscribe to fail, the session was closed while it was handled")
	}
	expectClosed(t, c)
	eventually(t, "session teardown", func() bool { return env.srv.ActiveSessions() == 0 })

	// The sweep ran after the request, nothing of the session is left in the table
	info, err := env.store.GetDBInfo()
	if err != nil {
		t.Fatalf("GetDBInfo failed: %v", err)
	}
	if info.Subscriptions != 0 {
		t.Fatalf("expected no subscriptions after teardown, got %d", info.Subscriptions)
	}

	// The worker is free again and the key can be subscribed by a new session
	c2 := env.connect(t, "c2")
	defer c2.Disconnect()
	if status, err := c2.Subscribe("a"); err != nil || status != common.StatusSubscribeExisted {
		t.Fatalf("Subscribe(a) from a new session: status %d, err %v", status, err)
	}
}

func TestClosedRequestChannelEndsSession(t *testing.T) {
	env := newTestEnv(t, 1, 10)
	c := env.connect(t, "c1")
	if _, err := c.Subscribe("k"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	eventually(t, "session teardown", func() bool { return env.srv.ActiveSessions() == 0 })

	info, _ := env.store.GetDBInfo()
	if info.Subscriptions != 0 {
		t.Fatalf("expected no subscriptions, got %d", info.Subscriptions)
	}
}

func TestRegisterProtocolViolation(t *testing.T) {
	env := newTestEnv(t, 1, 10)

	w, err := env.hub.Dial("register")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := env.codec.WriteRequest(w, common.NewDisconnectRequest()); err != nil {
		t.Fatalf("WriteRequest failed: %v", err)
	}
	_ = w.Close()

	// The rejected attempt does not affect other clients
	c := env.connect(t, "c1")
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
}

func TestRegisterGarbageBytes(t *testing.T) {
	env := newTestEnv(t, 1, 10)

	w, err := env.hub.Dial("register")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if _, err := w.Write([]byte{0xee, 0xef, 0x00}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	_ = w.Close()

	// Every garbage byte is rejected on its own, the next record is read intact
	c := env.connect(t, "c1")
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
}

func TestServeShutdown(t *testing.T) {
	env := newTestEnv(t, 2, 10)
	c := env.connect(t, "c1")

	if err := env.stop(); err != nil {
		t.Fatalf("Serve returned %v", err)
	}
	expectClosed(t, c)
	if env.srv.ActiveSessions() != 0 {
		t.Fatalf("expected no sessions after shutdown, got %d", env.srv.ActiveSessions())
	}
	if err := env.srv.Serve(context.Background()); err == nil {
		t.Fatal("expected a second Serve to fail")
	}
	_ = c.Close()
}

func TestManySessions(t *testing.T) {
	const clients = 8
	env := newTestEnv(t, clients, 10)

	cs := make([]client.IClient, clients)
	for i := range cs {
		cs[i] = env.connect(t, fmt.Sprintf("c%d", i))
		if _, err := cs[i].Subscribe("shared"); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	_ = env.store.Write([]db.Pair{{Key: "shared", Value: "x"}})
	for _, c := range cs {
		expectChange(t, c, db.Change{Key: "shared", Value: "x"})
		if err := c.Disconnect(); err != nil {
			t.Fatalf("Disconnect failed: %v", err)
		}
	}
}
