package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/devghori1264/robofleet/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the record store for robot and module rows. Kept minimal so
// implementations can be swapped (badger for the daemons, memory for tests).
type Store interface {
	GetRobot(ctx context.Context, id string) (*models.Robot, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
	ListRobots(ctx context.Context) ([]*models.Robot, error)
	ListModulesByRobot(ctx context.Context, robotID string) ([]*models.Module, error)
	SaveRobot(ctx context.Context, r *models.Robot) error
	SaveModule(ctx context.Context, m *models.Module) error
	Close() error
}

// BadgerStore implements Store with Badger DB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(path))
	opts.Logger = nil                         // disable badger logs for test clarity
	opts = opts.WithValueLogFileSize(1 << 20) // smaller value log for local dev
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func robotKey(id string) []byte {
	return []byte("robot:" + id)
}

func moduleKey(id string) []byte {
	return []byte("module:" + id)
}

var (
	robotPrefix  = []byte("robot:")
	modulePrefix = []byte("module:")
)

func (s *BadgerStore) SaveRobot(ctx context.Context, r *models.Robot) error {
	return s.save(robotKey(r.ID), r)
}

func (s *BadgerStore) SaveModule(ctx context.Context, m *models.Module) error {
	return s.save(moduleKey(m.ID), m)
}

func (s *BadgerStore) save(key []byte, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) GetRobot(ctx context.Context, id string) (*models.Robot, error) {
	var out models.Robot
	if err := s.get(robotKey(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) GetModule(ctx context.Context, id string) (*models.Module, error) {
	var out models.Module
	if err := s.get(moduleKey(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(raw []byte) error {
			return json.Unmarshal(raw, v)
		})
	})
}

func (s *BadgerStore) ListRobots(ctx context.Context) ([]*models.Robot, error) {
	var out []*models.Robot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(robotPrefix); it.ValidForPrefix(robotPrefix); it.Next() {
			var r models.Robot
			err := it.Item().Value(func(raw []byte) error {
				return json.Unmarshal(raw, &r)
			})
			if err != nil {
				return fmt.Errorf("scan robots: %w", err)
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListModulesByRobot scans the module keyspace and keeps rows owned by
// robotID. Order is unspecified.
func (s *BadgerStore) ListModulesByRobot(ctx context.Context, robotID string) ([]*models.Module, error) {
	var out []*models.Module
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(modulePrefix); it.ValidForPrefix(modulePrefix); it.Next() {
			var m models.Module
			err := it.Item().Value(func(raw []byte) error {
				return json.Unmarshal(raw, &m)
			})
			if err != nil {
				return fmt.Errorf("scan modules: %w", err)
			}
			if m.RobotID == robotID {
				out = append(out, &m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
