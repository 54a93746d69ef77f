package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dustin/go-humanize"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backup")

var (
	backupsTotal   = metrics.GetOrCreateCounter("skv_backups_total")
	backupFailures = metrics.GetOrCreateCounter("skv_backup_failures_total")
)

// ISink is the destination of finished backups
type ISink interface {
	// GetName returns a short description of the sink, used for logging
	GetName() string
	// Put stores data under name. An existing backup with the same name is replaced.
	Put(ctx context.Context, name string, data []byte) error
}

// Manager runs backups in the background while bounding the number of backups in
// flight. A new backup is only started if at most maxConcurrent backups are active,
// so at most maxConcurrent+1 backups ever run at the same time.
//
// Thread-safety: All methods are thread-safe.
type Manager struct {
	sink          ISink
	maxConcurrent int

	mu     sync.Mutex
	cond   *sync.Cond
	active int
	peak   int
	errs   []error

	wg sync.WaitGroup
}

// NewManager creates a new backup manager writing to sink
func NewManager(sink ISink, maxConcurrent int) *Manager {
	if maxConcurrent < 0 {
		maxConcurrent = 0
	}
	m := &Manager{
		sink:          sink,
		maxConcurrent: maxConcurrent,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start takes a backup named name. It blocks while more than maxConcurrent backups
// are in flight, then calls snapshot synchronously to capture the point-in-time
// content and hands the content to the sink in a separate goroutine.
//
// An error is returned only if the snapshot itself fails. Errors of the sink are
// collected and returned by Wait.
func (m *Manager) Start(name string, snapshot func(w io.Writer) error) error {
	m.acquire()

	var buf bytes.Buffer
	if err := snapshot(&buf); err != nil {
		m.release()
		backupFailures.Inc()
		return fmt.Errorf("snapshot for backup %s: %w", name, err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release()

		if err := m.sink.Put(context.Background(), name, buf.Bytes()); err != nil {
			backupFailures.Inc()
			Logger.Errorf("backup %s to %s failed: %v", name, m.sink.GetName(), err)
			m.mu.Lock()
			m.errs = append(m.errs, fmt.Errorf("backup %s: %w", name, err))
			m.mu.Unlock()
			return
		}
		backupsTotal.Inc()
		Logger.Debugf("backup %s written to %s (%s)", name, m.sink.GetName(), humanize.Bytes(uint64(buf.Len())))
	}()
	return nil
}

// Wait blocks until all started backups finished and returns the joined errors
// of the failed ones. The collected errors are reset.
func (m *Manager) Wait() error {
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	err := errors.Join(m.errs...)
	m.errs = nil
	return err
}

// Active returns the number of backups currently in flight
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Peak returns the highest number of backups that were in flight at the same time
func (m *Manager) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (m *Manager) acquire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.active > m.maxConcurrent {
		m.cond.Wait()
	}
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
}

func (m *Manager) release() {
	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	m.cond.Signal()
}
