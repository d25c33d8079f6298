package storage

import (
	"context"
	"sync"

	"github.com/devghori1264/robofleet/internal/models"
)

// MemStore is an in-memory Store with the same semantics as BadgerStore.
// Records are copied in and out so callers never alias stored state.
type MemStore struct {
	mu      sync.RWMutex
	robots  map[string]models.Robot
	modules map[string]models.Module
}

func NewMemStore() *MemStore {
	return &MemStore{
		robots:  make(map[string]models.Robot),
		modules: make(map[string]models.Module),
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) GetRobot(ctx context.Context, id string) (*models.Robot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.robots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemStore) GetModule(ctx context.Context, id string) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemStore) ListRobots(ctx context.Context) ([]*models.Robot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Robot
	for _, r := range s.robots {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (s *MemStore) ListModulesByRobot(ctx context.Context, robotID string) ([]*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Module
	for _, m := range s.modules {
		if m.RobotID == robotID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (s *MemStore) SaveRobot(ctx context.Context, r *models.Robot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots[r.ID] = *r
	return nil
}

func (s *MemStore) SaveModule(ctx context.Context, m *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[m.ID] = *m
	return nil
}
