package badger

import (
	"fmt"
	"os"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// gcInterval is how often the value-log garbage collector runs. The
// queue rewrites job rows constantly (leases, heartbeats), so the value
// log accumulates garbage quickly on a busy deployment.
const gcInterval = 10 * time.Minute

// BadgerDB is the shared store handle. Server and workers each open
// their own handle against the same directory is NOT supported; badger
// is single-process, so workers and the server reach the store through
// one process or separate paths per deployment.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	gcStop chan struct{}
}

// NewBadgerDB opens (and if configured, first wipes) the store at the
// configured path and starts the value-log GC loop.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Removing existing database (reset_on_startup)")
			if err := os.RemoveAll(config.Path); err != nil {
				return nil, fmt.Errorf("failed to reset database at %s: %w", config.Path, err)
			}
		}
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // arbor owns process logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	db := &BadgerDB{
		store:  store,
		logger: logger,
		gcStop: make(chan struct{}),
	}
	go db.runValueLogGC()

	logger.Debug().Str("path", config.Path).Msg("Badger store opened")
	return db, nil
}

// runValueLogGC reclaims value-log space until Close
func (b *BadgerDB) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.gcStop:
			return
		case <-ticker.C:
			// Each successful pass rewrites one file; loop until there is
			// nothing left worth rewriting.
			for {
				if err := b.store.Badger().RunValueLogGC(0.5); err != nil {
					if err != badgerdb.ErrNoRewrite {
						b.logger.Warn().Err(err).Msg("Value-log GC failed")
					}
					break
				}
			}
		}
	}
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC loop and closes the store
func (b *BadgerDB) Close() error {
	if b.gcStop != nil {
		close(b.gcStop)
		b.gcStop = nil
	}
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
