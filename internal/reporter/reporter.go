// Package reporter implements the module-side status client: transition a
// module's status, persist it, then notify the owning robot with a one-shot
// TCP/JSON message.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/devghori1264/robofleet/internal/models"
	"github.com/devghori1264/robofleet/internal/status"
	"github.com/devghori1264/robofleet/internal/storage"
	"github.com/devghori1264/robofleet/internal/wire"
)

// ErrNotifyFailed marks a failed notification attempt. The status change is
// already persisted when this is returned; the robot simply hasn't heard
// about it yet.
var ErrNotifyFailed = errors.New("notify robot failed")

const defaultDialTimeout = 5 * time.Second

// Reporter drives status transitions for modules.
type Reporter struct {
	store       storage.Store
	log         *zap.Logger
	dialTimeout time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func New(store storage.Store, log *zap.Logger) *Reporter {
	return &Reporter{
		store:       store,
		log:         log,
		dialTimeout: defaultDialTimeout,
		now:         time.Now,
	}
}

// Result describes the outcome of a Report call.
type Result struct {
	Module *models.Module
	Robot  *models.Robot
	// Notified is false when the persisted change could not be delivered.
	Notified bool
}

// Report transitions a module to newStatus, persists the change, and sends
// one notification to the owning robot. The persist happens before the
// network attempt and is never rolled back: a delivery failure comes back
// wrapped in ErrNotifyFailed alongside a populated Result.
func (r *Reporter) Report(ctx context.Context, moduleID, newStatus string) (*Result, error) {
	ctx, span := otel.Tracer("robofleet/reporter").Start(ctx, "Report")
	defer span.End()
	span.SetAttributes(attribute.String("module.id", moduleID))

	module, err := r.store.GetModule(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", moduleID, err)
	}
	robot, err := r.store.GetRobot(ctx, module.RobotID)
	if err != nil {
		return nil, fmt.Errorf("robot %s: %w", module.RobotID, err)
	}
	st, err := status.ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	module.Status = st
	module.LastOnline = r.now().UTC().Truncate(time.Second)
	if err := r.store.SaveModule(ctx, module); err != nil {
		return nil, fmt.Errorf("save module %s: %w", module.ID, err)
	}

	res := &Result{Module: module, Robot: robot}
	if err := r.notify(ctx, robot, wire.Notification{ModuleID: module.ID, Status: st}); err != nil {
		r.log.Warn("notification not delivered",
			zap.String("module_id", module.ID),
			zap.String("robot_addr", robot.Addr()),
			zap.Error(err))
		return res, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	res.Notified = true
	return res, nil
}

// notify opens one TCP connection, writes the payload, and closes. No
// response is read; the protocol is fire-and-forget.
func (r *Reporter) notify(ctx context.Context, robot *models.Robot, n wire.Notification) error {
	payload, err := n.Encode()
	if err != nil {
		return err
	}
	d := net.Dialer{Timeout: r.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", robot.Addr())
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return err
	}
	return nil
}
