package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Persistent is the on-disk tier behind the memory partitions.
type Persistent struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

// Infof is demoted to debug; badger is chatty on open.
func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenPersistent opens (or creates) a badger database at dir.
// An empty dir opens an in-memory instance.
func OpenPersistent(dir string, logger *slog.Logger) (*Persistent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logger.Info("cache persistence opened", "dir", dir, "in_memory", dir == "")
	return &Persistent{db: db, logger: logger}, nil
}

func persistKey(partition, key string) []byte {
	return []byte(partition + "/" + key)
}

// Get returns a copy of the stored bytes. Expired keys are reported as absent.
func (p *Persistent) Get(partition, key string) ([]byte, bool, error) {
	var val []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(persistKey(partition, key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores val with the given TTL (0 = no expiry).
func (p *Persistent) Set(partition, key string, val []byte, ttl time.Duration) error {
	return p.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(persistKey(partition, key), val)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (p *Persistent) Delete(partition, key string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(persistKey(partition, key))
	})
}

// DropPartition removes every key of one partition.
func (p *Persistent) DropPartition(partition string) error {
	return p.db.DropPrefix([]byte(partition + "/"))
}

func (p *Persistent) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
