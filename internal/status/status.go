// Package status holds the shared lifecycle vocabulary for robots and
// modules, and the rule that folds module statuses into a robot status.
package status

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidKind   = errors.New("invalid module kind")
)

// Status is the lifecycle state of a module or robot.
type Status string

const (
	Running Status = "RUNNING"
	Idle    Status = "IDLE"
	Failed  Status = "FAILED"
)

// ParseStatus validates a status token. Unknown tokens are a validation
// error, never a default.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Running, Idle, Failed:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q (want RUNNING, IDLE or FAILED)", ErrInvalidStatus, s)
}

// ModuleKind tags what a module is. Informational only; it plays no part in
// aggregation.
type ModuleKind string

const (
	Vision   ModuleKind = "VISION"
	Motion   ModuleKind = "MOTION"
	IMU      ModuleKind = "IMU"
	Actuator ModuleKind = "ACTUATOR"
)

func ParseModuleKind(s string) (ModuleKind, error) {
	switch ModuleKind(s) {
	case Vision, Motion, IMU, Actuator:
		return ModuleKind(s), nil
	}
	return "", fmt.Errorf("%w: %q (want VISION, MOTION, IMU or ACTUATOR)", ErrInvalidKind, s)
}

// Aggregate folds module statuses into a robot status by precedence
// FAILED > RUNNING > IDLE. No modules means IDLE.
func Aggregate(statuses []Status) Status {
	anyRunning := false
	for _, s := range statuses {
		switch s {
		case Failed:
			return Failed
		case Running:
			anyRunning = true
		}
	}
	if anyRunning {
		return Running
	}
	return Idle
}
