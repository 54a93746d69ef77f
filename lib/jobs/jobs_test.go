package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/backup"
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/bucket"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
)

func newStore(t *testing.T, opts lstore.Options) store.IStore {
	t.Helper()
	s := lstore.NewLocalStore(func(n db.INotifier) db.KVDB {
		return bucket.NewBucketDB(&bucket.DBOptions{Notifier: n})
	}, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecutorOutput(t *testing.T) {
	s := newStore(t, lstore.Options{})
	exec := NewExecutor(s, 0)

	script := strings.Join([]string{
		"# setup",
		"WRITE [(b,2)(a,1)]",
		"READ [z,a]",
		"DELETE [a,missing]",
		"DELETE [b]",
		"WRITE [(c,3)]",
		"SHOW",
		"NOT A COMMAND",
		"WAIT 1",
		"",
	}, "\n")

	var out bytes.Buffer
	if err := exec.Run(context.Background(), "test", strings.NewReader(script), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "[(a,1)(z,KVSERROR)]\n" +
		"[(missing,KVSMISSING)]\n" +
		"(c, 3)\n" +
		"Waiting...\n"
	if out.String() != want {
		t.Errorf("Unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestExecutorHelpAndLimits(t *testing.T) {
	s := newStore(t, lstore.Options{})
	exec := NewExecutor(s, 2)

	var out bytes.Buffer
	err := exec.Run(context.Background(), "test", strings.NewReader("HELP\nWRITE [(a,1)(b,2)(c,3)]\nREAD [a]\n"), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Available commands:") {
		t.Errorf("Expected help text, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "[(a,KVSERROR)]\n") {
		t.Errorf("Expected oversized write to be rejected, got %q", out.String())
	}
}

func TestExecutorCancel(t *testing.T) {
	s := newStore(t, lstore.Options{})
	exec := NewExecutor(s, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := exec.Run(ctx, "test", strings.NewReader("WAIT 10000\nWRITE [(a,1)]\n"), &bytes.Buffer{})
	if err == nil {
		t.Errorf("Expected cancellation error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Expected WAIT to be interrupted by cancellation")
	}
}

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, lstore.Options{BackupSink: backup.NewFileSink(dir), MaxBackups: 1})

	for i := 0; i < 4; i++ {
		content := fmt.Sprintf("WRITE [(k%d,%d)]\nREAD [k%d]\nBACKUP\nBACKUP\n", i, i, i)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("job%d.job", i)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("SHOW\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(NewExecutor(s, 0), 2)
	if err := runner.RunDir(context.Background(), dir); err != nil {
		t.Fatalf("RunDir failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		out, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("job%d.out", i)))
		if err != nil {
			t.Fatalf("Expected output file for job %d: %v", i, err)
		}
		if want := fmt.Sprintf("[(k%d,%d)]\n", i, i); string(out) != want {
			t.Errorf("Job %d: expected %q, got %q", i, want, out)
		}
		for n := 1; n <= 2; n++ {
			if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("job%d-%d.bck", i, n))); err != nil {
				t.Errorf("Expected backup %d of job %d: %v", n, i, err)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "ignored.out")); !os.IsNotExist(err) {
		t.Errorf("Expected non job files to be ignored")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, lstore.Options{})
	runner := NewRunner(NewExecutor(s, 0), 2)
	runner.settle = 20 * time.Millisecond

	if err := os.WriteFile(filepath.Join(dir, "first.job"), []byte("WRITE [(a,1)]\nREAD [a]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Watch(ctx, dir) }()

	waitForFile(t, filepath.Join(dir, "first.out"), "[(a,1)]\n")

	if err := os.WriteFile(filepath.Join(dir, "second.job"), []byte("READ [a]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForFile(t, filepath.Join(dir, "second.out"), "[(a,1)]\n")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Watch did not stop after cancellation")
	}
}

func waitForFile(t *testing.T, path, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && string(data) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("File %s did not reach expected content %q", path, want)
}

func TestPathHelper(t *testing.T) {
	if OutputPath("/jobs/test.job") != "/jobs/test.out" {
		t.Errorf("Unexpected output path %s", OutputPath("/jobs/test.job"))
	}
	if !IsJobFile("x.job") || IsJobFile("x.out") {
		t.Errorf("Unexpected IsJobFile result")
	}
}
