// robotd runs the status listener for one robot: it accepts module status
// notifications over TCP, recomputes the robot's aggregate status, and
// raises alerts on failures.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devghori1264/robofleet/internal/alert"
	"github.com/devghori1264/robofleet/internal/config"
	"github.com/devghori1264/robofleet/internal/metrics"
	"github.com/devghori1264/robofleet/internal/models"
	"github.com/devghori1264/robofleet/internal/server"
	"github.com/devghori1264/robofleet/internal/storage"
	"github.com/devghori1264/robofleet/internal/telemetry"
)

func main() {
	var cfg config.Robotd
	if err := config.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := &cobra.Command{
		Use:          "robotd",
		Short:        "Robot status listener daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "Badger DB path")
	cmd.Flags().StringVar(&cfg.RobotID, "robot-id", cfg.RobotID, "robot to serve (optional when the store holds exactly one)")
	cmd.Flags().StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS URL for alert fan-out (optional)")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Robotd) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	shutdownTracing, err := telemetry.Setup(ctx, "robotd")
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, err := storage.NewBadgerStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open badger store: %w", err)
	}
	defer store.Close()

	robot, err := resolveRobot(ctx, store, cfg.RobotID)
	if err != nil {
		return err
	}
	log.Info("serving robot",
		zap.String("robot_id", robot.ID),
		zap.String("name", robot.Name),
		zap.String("status", string(robot.Status)))

	alerters := alert.Fanout{alert.NewLogAlerter(log)}
	if cfg.NATSURL != "" {
		na, err := alert.NewNATSAlerter(cfg.NATSURL, log)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer na.Close()
		alerters = append(alerters, na)
	}

	lis, err := net.Listen("tcp", robot.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", robot.Addr(), err)
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux()}
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	srv := server.New(store, alerters, log, robot.ID)
	err = srv.Serve(ctx, lis)

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := metricsServer.Shutdown(sctx); serr != nil {
		log.Warn("metrics shutdown", zap.Error(serr))
	}
	log.Info("shutdown complete")
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	metrics.Register(mux)
	return mux
}

// resolveRobot picks the robot this daemon serves: the --robot-id flag, or
// the only robot in the store.
func resolveRobot(ctx context.Context, store storage.Store, robotID string) (*models.Robot, error) {
	if robotID != "" {
		r, err := store.GetRobot(ctx, robotID)
		if err != nil {
			return nil, fmt.Errorf("robot %s: %w", robotID, err)
		}
		return r, nil
	}
	robots, err := store.ListRobots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list robots: %w", err)
	}
	switch len(robots) {
	case 0:
		return nil, fmt.Errorf("no robots provisioned; create one with fleetctl robot create")
	case 1:
		return robots[0], nil
	default:
		return nil, fmt.Errorf("%d robots in store; pass --robot-id", len(robots))
	}
}
