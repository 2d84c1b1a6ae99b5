package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/interfaces"
)

// store implements interfaces.Store by composing the three BadgerDB-backed
// storage adapters over a single shared connection.
type store struct {
	db *BadgerDB
	*jobStorage
	*pageStorage
	*errorLogStorage
}

// NewStore opens a BadgerDB at config.Path and returns the full persistence
// contract consumed by the capture core.
func NewStore(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.Store, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &store{
		db:              db,
		jobStorage:      newJobStorage(db, logger),
		pageStorage:     newPageStorage(db, logger),
		errorLogStorage: newErrorLogStorage(db, logger),
	}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}
