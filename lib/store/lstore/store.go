package lstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/sKV/lib/backup"
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

var (
	writesTotal  = metrics.GetOrCreateCounter("skv_writes_total")
	readsTotal   = metrics.GetOrCreateCounter("skv_reads_total")
	deletesTotal = metrics.GetOrCreateCounter("skv_deletes_total")
	keysMissing  = metrics.GetOrCreateCounter("skv_keys_missing_total")
)

// Options configures the limits of a local store
type Options struct {
	MaxBatchSize     int          // Max keys per batch (0 = unlimited)
	MaxSubscriptions int          // Max subscriptions per subscriber (0 = unlimited)
	MaxBackups       int          // A backup starts only if at most this many are in flight
	BackupSink       backup.ISink // Destination of backups (nil = backups are rejected)
}

type storeImpl struct {
	opts    Options
	db      db.KVDB
	hub     *notify.Hub
	backups *backup.Manager

	// life is read-locked by every operation and write-locked by Close
	life   sync.RWMutex
	closed bool
}

// NewLocalStore creates a new local store instance.
// The factory receives the notification hub of the store as its notifier.
func NewLocalStore(factory store.DBFactory, opts Options) store.IStore {
	hub := notify.NewHub()
	s := &storeImpl{
		opts: opts,
		db:   factory(hub),
		hub:  hub,
	}
	if opts.BackupSink != nil {
		s.backups = backup.NewManager(opts.BackupSink, opts.MaxBackups)
	}
	return s
}

// enter read-locks the lifecycle and fails if the store is closed.
// The returned function must be called when the operation finished.
func (s *storeImpl) enter() (func(), error) {
	s.life.RLock()
	if s.closed {
		s.life.RUnlock()
		return nil, store.ErrNotInitialized
	}
	return s.life.RUnlock, nil
}

func (s *storeImpl) checkBatch(n int) error {
	if s.opts.MaxBatchSize > 0 && n > s.opts.MaxBatchSize {
		return store.NewError(store.RetCCapacityExceeded,
			fmt.Sprintf("batch of %d keys exceeds the maximum of %d", n, s.opts.MaxBatchSize))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Write(pairs []db.Pair) error {
	leave, err := s.enter()
	if err != nil {
		return err
	}
	defer leave()

	if err := s.checkBatch(len(pairs)); err != nil {
		return err
	}
	s.db.Write(pairs)
	writesTotal.Add(len(pairs))
	return nil
}

func (s *storeImpl) Read(keys []string) ([]db.ReadResult, error) {
	leave, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	if err := s.checkBatch(len(keys)); err != nil {
		return nil, err
	}
	results := s.db.Read(keys)
	readsTotal.Add(len(keys))
	for _, r := range results {
		if !r.Found {
			keysMissing.Inc()
		}
	}
	return results, nil
}

func (s *storeImpl) Delete(keys []string) ([]db.DeleteResult, error) {
	leave, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	if err := s.checkBatch(len(keys)); err != nil {
		return nil, err
	}
	results := s.db.Delete(keys)
	deletesTotal.Add(len(keys))
	for _, r := range results {
		if !r.Found {
			keysMissing.Inc()
		}
	}
	return results, nil
}

func (s *storeImpl) Show(w io.Writer) error {
	leave, err := s.enter()
	if err != nil {
		return err
	}
	defer leave()

	// render under the bucket locks, write to w after they are released
	var buf bytes.Buffer
	if err := s.render(&buf); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (s *storeImpl) Backup(name string) error {
	leave, err := s.enter()
	if err != nil {
		return err
	}
	defer leave()

	if s.backups == nil {
		return store.NewError(store.RetCInvalidOperation, "no backup target configured")
	}
	if err := s.backups.Start(name, s.render); err != nil {
		return store.NewError(store.RetCInternalError, err.Error())
	}
	return nil
}

func (s *storeImpl) WaitBackups() error {
	if s.backups == nil {
		return nil
	}
	return s.backups.Wait()
}

func (s *storeImpl) RegisterSubscriber(sink notify.ISink) (db.SubscriberID, error) {
	leave, err := s.enter()
	if err != nil {
		return 0, err
	}
	defer leave()

	return s.hub.Register(sink), nil
}

func (s *storeImpl) Subscribe(id db.SubscriberID, key string) (bool, error) {
	leave, err := s.enter()
	if err != nil {
		return false, err
	}
	defer leave()

	if !s.hub.Reserve(id, s.opts.MaxSubscriptions) {
		return false, store.NewError(store.RetCCapacityExceeded,
			fmt.Sprintf("subscriber %d holds the maximum of %d subscriptions", id, s.opts.MaxSubscriptions))
	}

	existed, result := s.db.Subscribe(key, id)
	switch result {
	case db.SubscribeAdded:
		// DropSubscriber may have swept the table between Reserve and Subscribe
		if !s.hub.Registered(id) {
			s.db.Unsubscribe(key, id)
			return existed, store.NewError(store.RetCInvalidOperation,
				fmt.Sprintf("subscriber %d was dropped", id))
		}
	case db.SubscribeExists:
		s.hub.Release(id)
	case db.SubscribeRefused:
		s.hub.Release(id)
		return existed, store.NewError(store.RetCCapacityExceeded,
			fmt.Sprintf("key %q has the maximum number of subscribers", key))
	}
	return existed, nil
}

func (s *storeImpl) Unsubscribe(id db.SubscriberID, key string) (bool, error) {
	leave, err := s.enter()
	if err != nil {
		return false, err
	}
	defer leave()

	removed := s.db.Unsubscribe(key, id)
	if removed {
		s.hub.Release(id)
	}
	return removed, nil
}

func (s *storeImpl) DropSubscriber(id db.SubscriberID) error {
	leave, err := s.enter()
	if err != nil {
		return err
	}
	defer leave()

	// invalidate first: a concurrent Subscribe that inserts after the sweep sees
	// the dead handle and removes its own subscription
	s.hub.Deregister(id)
	removed := s.db.UnsubscribeAll(id)
	Logger.Debugf("dropped subscriber %d with %d subscriptions", id, removed)
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	leave, err := s.enter()
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	defer leave()

	return s.db.GetInfo(), nil
}

func (s *storeImpl) Close() error {
	s.life.Lock()
	defer s.life.Unlock()

	if s.closed {
		return store.ErrNotInitialized
	}
	s.closed = true

	backupErr := s.WaitBackups()
	if err := s.db.Close(); err != nil {
		return err
	}
	return backupErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// render writes all pairs in the show format to w under the table's snapshot lock
func (s *storeImpl) render(w io.Writer) error {
	return s.db.Snapshot(func(p db.Pair) error {
		_, err := fmt.Fprintf(w, "(%s, %s)\n", p.Key, p.Value)
		return err
	})
}
