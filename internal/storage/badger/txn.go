package badger

import (
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

const txnMaxRetries = 10

// Update runs fn inside a serializable Badger write transaction,
// retrying with a short backoff when the commit loses a conflict to a
// concurrent writer. Conflicts are how Badger surfaces two workers
// racing for the same rows, so callers treat a retried transaction the
// same as a fresh one.
func (b *BadgerDB) Update(fn func(tx *badgerdb.Txn) error) error {
	var err error
	for attempt := 0; attempt < txnMaxRetries; attempt++ {
		err = b.store.Badger().Update(fn)
		if err != badgerdb.ErrConflict {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}
