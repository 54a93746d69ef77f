package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// Runner processes all job files of a directory with a bounded number of workers
type Runner struct {
	exec       *Executor
	maxThreads int

	// settle is the time a newly created job file must stay unchanged before it is run in watch mode
	settle time.Duration
}

// NewRunner creates a runner that processes at most maxThreads files at the same time
func NewRunner(exec *Executor, maxThreads int) *Runner {
	if maxThreads <= 0 {
		maxThreads = 1
	}
	return &Runner{
		exec:       exec,
		maxThreads: maxThreads,
		settle:     200 * time.Millisecond,
	}
}

// ListJobs returns the sorted paths of all job files directly inside dir
func ListJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read job directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsJobFile(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunDir runs every job file in dir, at most maxThreads at once, and waits for
// all backups started by them. Failures of single files are logged and do not
// stop the other files.
func (r *Runner) RunDir(ctx context.Context, dir string) error {
	paths, err := ListJobs(dir)
	if err != nil {
		return err
	}

	g := new(errgroup.Group)
	g.SetLimit(r.maxThreads)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			r.runFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := r.exec.store.WaitBackups(); err != nil {
		return fmt.Errorf("backups failed: %w", err)
	}
	return ctx.Err()
}

// Watch runs all existing job files of dir and then every job file created later,
// until ctx is cancelled. A new file is run once it has not been written to for a
// short settle time.
func (r *Runner) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create job watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch job directory %q: %w", dir, err)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.maxThreads)

	var (
		mu      sync.Mutex
		stopped bool
		pending = make(map[string]*time.Timer)
		seen    = make(map[string]bool)
	)
	start := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		delete(pending, path)
		if stopped || seen[path] {
			return
		}
		seen[path] = true
		g.Go(func() error {
			r.runFile(ctx, path)
			return nil
		})
	}
	schedule := func(path string, delay time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if stopped || seen[path] {
			return
		}
		if t, ok := pending[path]; ok {
			t.Reset(delay)
			return
		}
		pending[path] = time.AfterFunc(delay, func() { start(path) })
	}

	existing, err := ListJobs(dir)
	if err != nil {
		return err
	}
	for _, path := range existing {
		schedule(path, 0)
	}

	Logger.Infof("watching %s for new job files", dir)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case event, ok := <-watcher.Events:
			if !ok {
				break loop
			}
			if IsJobFile(event.Name) && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(event.Name, r.settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				break loop
			}
			Logger.Warningf("job watcher error: %v", err)
		}
	}

	mu.Lock()
	stopped = true
	for _, t := range pending {
		t.Stop()
	}
	mu.Unlock()

	_ = g.Wait()
	if err := r.exec.store.WaitBackups(); err != nil {
		return fmt.Errorf("backups failed: %w", err)
	}
	return nil
}

func (r *Runner) runFile(ctx context.Context, path string) {
	start := time.Now()
	if err := r.exec.RunFile(ctx, path); err != nil {
		Logger.Errorf("job %s failed: %v", path, err)
		return
	}
	Logger.Infof("job %s finished in %s", path, time.Since(start).Round(time.Millisecond))
}
