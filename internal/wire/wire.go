// Package wire defines the module→robot notification payload: one TCP
// connection per notification carrying a single UTF-8 JSON object, no
// framing, no response.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/devghori1264/robofleet/internal/status"
)

// MaxNotificationSize bounds the server-side read of a notification.
// Payloads longer than this are truncated silently and will then fail to
// parse; senders must stay under the bound.
const MaxNotificationSize = 1024

// Notification reports one module's new status to its owning robot.
type Notification struct {
	ModuleID string        `json:"module_id"`
	Status   status.Status `json:"status"`
}

func (n Notification) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// ParseNotification decodes and validates a raw payload. Any defect (bad
// JSON, missing module_id, unknown status token) is an error; callers on
// the server side drop such payloads without side effects.
func ParseNotification(raw []byte) (Notification, error) {
	var msg struct {
		ModuleID string `json:"module_id"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if msg.ModuleID == "" {
		return Notification{}, fmt.Errorf("decode notification: module_id missing")
	}
	st, err := status.ParseStatus(msg.Status)
	if err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return Notification{ModuleID: msg.ModuleID, Status: st}, nil
}
