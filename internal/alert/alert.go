// Package alert delivers failure alerts to operator-visible channels.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ModuleFailure identifies the module a FAILED report came from. Name and
// Addr are empty when the module record could not be resolved.
type ModuleFailure struct {
	RobotID  string    `json:"robot_id"`
	ModuleID string    `json:"module_id"`
	Name     string    `json:"name,omitempty"`
	Addr     string    `json:"addr,omitempty"`
	At       time.Time `json:"at"`
}

// Alerter receives failure alerts. Implementations must not block the
// report path longer than strictly necessary.
type Alerter interface {
	ModuleFailed(ctx context.Context, f ModuleFailure)
}

// LogAlerter writes alerts to the process log.
type LogAlerter struct {
	log *zap.Logger
}

func NewLogAlerter(log *zap.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) ModuleFailed(ctx context.Context, f ModuleFailure) {
	a.log.Error("STATUS: FAILED",
		zap.String("module_id", f.ModuleID),
		zap.String("module_name", f.Name),
		zap.String("module_addr", f.Addr),
		zap.String("robot_id", f.RobotID),
	)
}

// Fanout delivers each alert to every configured alerter.
type Fanout []Alerter

func (fo Fanout) ModuleFailed(ctx context.Context, f ModuleFailure) {
	for _, a := range fo {
		a.ModuleFailed(ctx, f)
	}
}
