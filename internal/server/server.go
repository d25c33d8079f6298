// Package server implements the robot-side status listener: it accepts
// module notifications over TCP, recomputes the robot's aggregate status
// from the persisted module rows, and alerts on incoming failures.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/devghori1264/robofleet/internal/alert"
	"github.com/devghori1264/robofleet/internal/metrics"
	"github.com/devghori1264/robofleet/internal/status"
	"github.com/devghori1264/robofleet/internal/storage"
	"github.com/devghori1264/robofleet/internal/wire"
)

const defaultReadTimeout = 10 * time.Second

// Server processes status notifications for a single robot.
type Server struct {
	store       storage.Store
	alerter     alert.Alerter
	log         *zap.Logger
	robotID     string
	readTimeout time.Duration

	now func() time.Time
}

func New(store storage.Store, alerter alert.Alerter, log *zap.Logger, robotID string) *Server {
	return &Server{
		store:       store,
		alerter:     alerter,
		log:         log,
		robotID:     robotID,
		readTimeout: defaultReadTimeout,
		now:         time.Now,
	}
}

// Serve accepts connections until ctx is cancelled. Each connection is
// handled on its own goroutine; a bad or slow connection never stalls the
// accept loop or other handlers.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
	}()
	s.log.Info("listening for module reports", zap.String("addr", lis.Addr().String()))
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn performs the single bounded read the protocol allows and feeds
// the payload through HandleReport. Larger payloads are truncated and will
// fail to parse; that is the documented limit, not a bug.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	buf := make([]byte, wire.MaxNotificationSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		s.log.Debug("dropping unreadable connection",
			zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		return
	}
	if err := s.HandleReport(ctx, buf[:n]); err != nil {
		s.log.Error("report processing failed", zap.Error(err))
	}
}

// HandleReport processes one raw notification payload. Malformed input is
// dropped silently (fail-closed: the sender is untrusted, no state moves,
// no alert fires). The aggregate is recomputed from the persisted module
// rows, not the incoming payload; concurrent reports race benignly through
// last-write-wins on the robot row. Serializing recomputation per robot is
// a known possible hardening, deliberately not done here.
func (s *Server) HandleReport(ctx context.Context, raw []byte) error {
	ctx, span := otel.Tracer("robofleet/server").Start(ctx, "HandleReport")
	defer span.End()
	started := time.Now()

	note, err := wire.ParseNotification(raw)
	if err != nil {
		metrics.ReportsDropped.Inc()
		s.log.Debug("dropping malformed report", zap.Error(err))
		return nil
	}
	span.SetAttributes(
		attribute.String("module.id", note.ModuleID),
		attribute.String("report.status", string(note.Status)),
	)
	metrics.ReportsReceived.WithLabelValues(string(note.Status)).Inc()

	modules, err := s.store.ListModulesByRobot(ctx, s.robotID)
	if err != nil {
		return fmt.Errorf("list modules for robot %s: %w", s.robotID, err)
	}
	statuses := make([]status.Status, 0, len(modules))
	for _, m := range modules {
		statuses = append(statuses, m.Status)
	}
	aggregate := status.Aggregate(statuses)

	robot, err := s.store.GetRobot(ctx, s.robotID)
	if err != nil {
		return fmt.Errorf("robot %s: %w", s.robotID, err)
	}
	robot.Status = aggregate
	robot.LastOnline = s.now().UTC()
	if err := s.store.SaveRobot(ctx, robot); err != nil {
		return fmt.Errorf("save robot %s: %w", s.robotID, err)
	}
	metrics.RecomputeSeconds.Observe(time.Since(started).Seconds())

	// The alert keys off the incoming report, not the recomputed aggregate.
	if note.Status == status.Failed {
		s.emitAlert(ctx, note.ModuleID)
	}

	s.log.Info("report processed",
		zap.String("module_id", note.ModuleID),
		zap.String("reported", string(note.Status)),
		zap.String("aggregate", string(aggregate)))
	return nil
}

// emitAlert identifies the failed module as richly as the store allows. A
// report naming an unknown module still alerts by id; operators would
// rather hear about a ghost than miss a failure.
func (s *Server) emitAlert(ctx context.Context, moduleID string) {
	f := alert.ModuleFailure{
		RobotID:  s.robotID,
		ModuleID: moduleID,
		At:       s.now().UTC(),
	}
	if m, err := s.store.GetModule(ctx, moduleID); err == nil {
		f.Name = m.Name
		f.Addr = m.Addr()
	} else {
		s.log.Warn("failed module not in store", zap.String("module_id", moduleID), zap.Error(err))
	}
	metrics.AlertsEmitted.Inc()
	s.alerter.ModuleFailed(ctx, f)
}
