package models

import (
	"fmt"
	"time"

	"github.com/devghori1264/robofleet/internal/status"
)

// Robot is the aggregation point for a set of modules. Its Status is a
// derived summary of the owned modules' statuses and is only written by the
// status server; everything else is set at provisioning time.
type Robot struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Owner           string        `json:"owner"`
	OwnerEmail      string        `json:"owner_email"`
	Status          status.Status `json:"status"`
	LastOnline      time.Time     `json:"last_online"`
	PowerLevel      float64       `json:"power_level"`
	NetworkSSID     string        `json:"network_ssid"`
	NetworkPassword string        `json:"network_password"`
	IPAddress       string        `json:"ip_address"`
	Port            int           `json:"port"`
	Password        string        `json:"password"`
}

// Addr returns the host:port the robot listens on for notifications.
func (r *Robot) Addr() string {
	return fmt.Sprintf("%s:%d", r.IPAddress, r.Port)
}

// Module is a sensor or actuator unit owned by exactly one robot.
// The client path mutates Status and LastOnline; the server only reads it.
type Module struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Kind       status.ModuleKind `json:"kind"`
	IPAddress  string            `json:"ip_address"`
	Port       int               `json:"port"`
	Status     status.Status     `json:"status"`
	LastOnline time.Time         `json:"last_online"`
	RobotID    string            `json:"robot_id"`
}

func (m *Module) Addr() string {
	return fmt.Sprintf("%s:%d", m.IPAddress, m.Port)
}
