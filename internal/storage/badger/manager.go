package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// Manager bundles the Badger-backed storage implementations behind a
// single connection.
type Manager struct {
	db     *BadgerDB
	source interfaces.SourceStorage
	entry  interfaces.EntryStorage
	logger arbor.ILogger
}

// NewManager opens the database and wires up the storage implementations
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		source: NewSourceStorage(db, logger),
		entry:  NewEntryStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SourceStorage returns the Source storage interface
func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

// EntryStorage returns the Entry storage interface
func (m *Manager) EntryStorage() interfaces.EntryStorage {
	return m.entry
}

// DB returns the underlying database connection
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// Close closes the underlying database
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
