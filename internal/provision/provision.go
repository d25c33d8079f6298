// Package provision creates the initial robot and module rows. It writes
// through the same record store the core paths read; the core itself never
// creates records.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devghori1264/robofleet/internal/models"
	"github.com/devghori1264/robofleet/internal/status"
	"github.com/devghori1264/robofleet/internal/storage"
)

// RobotSpec carries the operator-supplied fields for a new robot.
type RobotSpec struct {
	Name            string
	Owner           string
	OwnerEmail      string
	Status          string
	PowerLevel      float64
	NetworkSSID     string
	NetworkPassword string
	IPAddress       string
	Port            int
	Password        string
}

// CreateRobot validates the spec and persists a new robot row.
func CreateRobot(ctx context.Context, store storage.Store, spec RobotSpec) (*models.Robot, error) {
	st := status.Idle
	if spec.Status != "" {
		parsed, err := status.ParseStatus(spec.Status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("robot name required")
	}
	r := &models.Robot{
		ID:              uuid.NewString(),
		Name:            spec.Name,
		Owner:           spec.Owner,
		OwnerEmail:      spec.OwnerEmail,
		Status:          st,
		LastOnline:      time.Now().UTC().Truncate(time.Second),
		PowerLevel:      spec.PowerLevel,
		NetworkSSID:     spec.NetworkSSID,
		NetworkPassword: spec.NetworkPassword,
		IPAddress:       spec.IPAddress,
		Port:            spec.Port,
		Password:        spec.Password,
	}
	if err := store.SaveRobot(ctx, r); err != nil {
		return nil, fmt.Errorf("save robot: %w", err)
	}
	return r, nil
}

// ModuleSpec carries the operator-supplied fields for a new module.
type ModuleSpec struct {
	Name      string
	Kind      string
	IPAddress string
	Port      int
	Status    string
	RobotID   string
}

// CreateModule validates the spec, checks the owning robot exists, and
// persists a new module row.
func CreateModule(ctx context.Context, store storage.Store, spec ModuleSpec) (*models.Module, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("module name required")
	}
	kind, err := status.ParseModuleKind(spec.Kind)
	if err != nil {
		return nil, err
	}
	st := status.Idle
	if spec.Status != "" {
		parsed, err := status.ParseStatus(spec.Status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	if _, err := store.GetRobot(ctx, spec.RobotID); err != nil {
		return nil, fmt.Errorf("robot %s: %w", spec.RobotID, err)
	}
	m := &models.Module{
		ID:         uuid.NewString(),
		Name:       spec.Name,
		Kind:       kind,
		IPAddress:  spec.IPAddress,
		Port:       spec.Port,
		Status:     st,
		LastOnline: time.Now().UTC().Truncate(time.Second),
		RobotID:    spec.RobotID,
	}
	if err := store.SaveModule(ctx, m); err != nil {
		return nil, fmt.Errorf("save module: %w", err)
	}
	return m, nil
}
