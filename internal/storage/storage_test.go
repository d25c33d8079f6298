package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devghori1264/robofleet/internal/models"
	"github.com/devghori1264/robofleet/internal/status"
)

// Both implementations must behave identically; run the suite over each.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{"badger": bs, "memory": NewMemStore()}
}

func TestRobotRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		r := &models.Robot{
			ID:         "r1",
			Name:       "atlas",
			Owner:      "ops",
			Status:     status.Idle,
			LastOnline: time.Now().UTC().Truncate(time.Second),
			IPAddress:  "127.0.0.1",
			Port:       9000,
		}
		if err := s.SaveRobot(ctx, r); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		got, err := s.GetRobot(ctx, "r1")
		if err != nil {
			t.Fatalf("%s: get: %v", name, err)
		}
		if got.Name != "atlas" || got.Status != status.Idle || got.Port != 9000 {
			t.Fatalf("%s: round trip mismatch: %+v", name, got)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		if _, err := s.GetRobot(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", name, err)
		}
		if _, err := s.GetModule(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", name, err)
		}
	}
}

func TestSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		m := &models.Module{ID: "m1", Name: "cam", Kind: status.Vision, RobotID: "r1", Status: status.Idle}
		if err := s.SaveModule(ctx, m); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		m.Status = status.Failed
		if err := s.SaveModule(ctx, m); err != nil {
			t.Fatalf("%s: resave: %v", name, err)
		}
		got, err := s.GetModule(ctx, "m1")
		if err != nil {
			t.Fatalf("%s: get: %v", name, err)
		}
		if got.Status != status.Failed {
			t.Fatalf("%s: upsert lost update: %+v", name, got)
		}
	}
}

func TestListModulesByRobotFilters(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		for _, m := range []*models.Module{
			{ID: "a", Name: "cam", Kind: status.Vision, RobotID: "r1", Status: status.Idle},
			{ID: "b", Name: "arm", Kind: status.Actuator, RobotID: "r1", Status: status.Running},
			{ID: "c", Name: "imu", Kind: status.IMU, RobotID: "r2", Status: status.Failed},
		} {
			if err := s.SaveModule(ctx, m); err != nil {
				t.Fatalf("%s: save %s: %v", name, m.ID, err)
			}
		}
		got, err := s.ListModulesByRobot(ctx, "r1")
		if err != nil {
			t.Fatalf("%s: list: %v", name, err)
		}
		if len(got) != 2 {
			t.Fatalf("%s: want 2 modules for r1, got %d", name, len(got))
		}
		for _, m := range got {
			if m.RobotID != "r1" {
				t.Fatalf("%s: listed module for wrong robot: %+v", name, m)
			}
		}
	}
}

func TestListRobots(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		for _, id := range []string{"r1", "r2"} {
			if err := s.SaveRobot(ctx, &models.Robot{ID: id, Name: id, Status: status.Idle}); err != nil {
				t.Fatalf("%s: save %s: %v", name, id, err)
			}
		}
		got, err := s.ListRobots(ctx)
		if err != nil {
			t.Fatalf("%s: list: %v", name, err)
		}
		if len(got) != 2 {
			t.Fatalf("%s: want 2 robots, got %d", name, len(got))
		}
	}
}

// MemStore hands out copies; mutating a returned record must not leak back.
func TestMemStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.SaveModule(ctx, &models.Module{ID: "m1", RobotID: "r1", Status: status.Idle}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetModule(ctx, "m1")
	got.Status = status.Failed
	again, _ := s.GetModule(ctx, "m1")
	if again.Status != status.Idle {
		t.Fatalf("stored record aliased: %+v", again)
	}
}
