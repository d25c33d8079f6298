package alert

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSAlerter publishes failure alerts as JSON events on
// robots.alerts.<robot_id> for external operator tooling.
type NATSAlerter struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewNATSAlerter(url string, log *zap.Logger) (*NATSAlerter, error) {
	opts := []nats.Option{
		nats.Name("robofleet-robotd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSAlerter{nc: nc, log: log}, nil
}

func (a *NATSAlerter) ModuleFailed(ctx context.Context, f ModuleFailure) {
	if a.nc == nil || a.nc.IsClosed() {
		a.log.Warn("nats not connected, alert dropped", zap.String("module_id", f.ModuleID))
		return
	}
	payload, err := json.Marshal(f)
	if err != nil {
		a.log.Warn("marshal alert", zap.Error(err))
		return
	}
	if err := a.nc.Publish("robots.alerts."+f.RobotID, payload); err != nil {
		a.log.Warn("publish alert", zap.Error(err))
	}
}

func (a *NATSAlerter) Close() {
	if a.nc != nil {
		a.nc.Drain()
		a.nc.Close()
	}
}
