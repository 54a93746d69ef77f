package client

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/bucket"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport/mem"
)

// lockedBuffer is a bytes.Buffer safe for concurrent use
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunSession(t *testing.T) {
	st := lstore.NewLocalStore(func(n db.INotifier) db.KVDB {
		return bucket.NewBucketDB(&bucket.DBOptions{Notifier: n})
	}, lstore.Options{MaxSubscriptions: 10})
	defer st.Close()

	config := common.DefaultServerConfig()
	config.Endpoint = "register"
	hub := mem.NewHub()
	codec := serializer.NewFixedCodec(config.MaxStringLength, config.MaxPathLength)
	srv := server.NewRPCServer(config, st, hub, codec)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-served
	}()

	// Wait for the register channel
	for i := 0; hub.Channels() == 0; i++ {
		if i == 200 {
			t.Fatal("register channel was not created")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c := client.NewRPCClient(common.ClientConfig{ClientID: "cli", Endpoint: "register"}, hub, codec)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Write the key as soon as the subscription exists
	go func() {
		for i := 0; i < 200; i++ {
			if info, _ := st.GetDBInfo(); info.Subscriptions == 1 {
				_ = st.Write([]db.Pair{{Key: "a", Value: "1"}})
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	input := strings.Join([]string{
		"SUBSCRIBE [a]",
		"DELAY 300",
		"UNSUBSCRIBE [a]",
		"UNSUBSCRIBE [a]",
		"WRITE [(a,2)]",
		"DISCONNECT",
		"SUBSCRIBE [never]",
	}, "\n")

	var out lockedBuffer
	if err := RunSession(context.Background(), c, strings.NewReader(input), &out); err != nil {
		t.Fatalf("RunSession failed: %v", err)
	}

	want := []string{
		"Server returned 0 for operation: SUBSCRIBE\n",
		"(a,1)\n",
		"Server returned 0 for operation: UNSUBSCRIBE\n",
		"Server returned 1 for operation: UNSUBSCRIBE\n",
		"line 5: Invalid command. See HELP for usage\n",
		"Server returned 0 for operation: DISCONNECT\n",
	}
	got := out.String()
	pos := 0
	for _, line := range want {
		idx := strings.Index(got[pos:], line)
		if idx < 0 {
			t.Fatalf("expected %q after position %d in output:\n%s", line, pos, got)
		}
		pos += idx + len(line)
	}
	if strings.Contains(got, "never") {
		t.Fatalf("commands after DISCONNECT were executed:\n%s", got)
	}
}

func TestFormatChange(t *testing.T) {
	if got := formatChange(db.Change{Key: "k", Value: "v"}); got != "(k,v)" {
		t.Errorf("expected (k,v), got %s", got)
	}
	if got := formatChange(db.Change{Key: "k", Deleted: true}); got != "(k,DELETED)" {
		t.Errorf("expected (k,DELETED), got %s", got)
	}
}
