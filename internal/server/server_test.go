package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devghori1264/robofleet/internal/alert"
	"github.com/devghori1264/robofleet/internal/models"
	"github.com/devghori1264/robofleet/internal/reporter"
	"github.com/devghori1264/robofleet/internal/status"
	"github.com/devghori1264/robofleet/internal/storage"
	"github.com/devghori1264/robofleet/internal/wire"
)

type recordingAlerter struct {
	mu    sync.Mutex
	fired []alert.ModuleFailure
}

func (a *recordingAlerter) ModuleFailed(ctx context.Context, f alert.ModuleFailure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fired = append(a.fired, f)
}

func (a *recordingAlerter) all() []alert.ModuleFailure {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alert.ModuleFailure(nil), a.fired...)
}

func seedFleet(t *testing.T, store storage.Store, moduleStatuses ...status.Status) *models.Robot {
	t.Helper()
	ctx := context.Background()
	robot := &models.Robot{ID: "r1", Name: "atlas", Status: status.Idle, IPAddress: "127.0.0.1", Port: 0}
	require.NoError(t, store.SaveRobot(ctx, robot))
	names := []string{"A", "B", "C", "D"}
	for i, st := range moduleStatuses {
		m := &models.Module{
			ID: names[i], Name: "mod-" + names[i], Kind: status.Vision,
			IPAddress: "10.0.0.5", Port: 7000 + i,
			Status: st, RobotID: "r1",
		}
		require.NoError(t, store.SaveModule(ctx, m))
	}
	return robot
}

func payload(t *testing.T, moduleID string, st status.Status) []byte {
	t.Helper()
	raw, err := wire.Notification{ModuleID: moduleID, Status: st}.Encode()
	require.NoError(t, err)
	return raw
}

func TestHandleReportAggregation(t *testing.T) {
	cases := []struct {
		name     string
		statuses []status.Status
		want     status.Status
	}{
		{"all idle", []status.Status{status.Idle, status.Idle}, status.Idle},
		{"idle and running", []status.Status{status.Idle, status.Running}, status.Running},
		{"failed and running", []status.Status{status.Failed, status.Running}, status.Failed},
		{"failed and idle", []status.Status{status.Failed, status.Idle}, status.Failed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemStore()
			seedFleet(t, store, tc.statuses...)
			srv := New(store, &recordingAlerter{}, zap.NewNop(), "r1")

			require.NoError(t, srv.HandleReport(ctx, payload(t, "A", status.Idle)))

			robot, err := store.GetRobot(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, tc.want, robot.Status)
		})
	}
}

func TestHandleReportStampsLastOnline(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	seedFleet(t, store, status.Idle)
	srv := New(store, &recordingAlerter{}, zap.NewNop(), "r1")

	start := time.Now().UTC()
	require.NoError(t, srv.HandleReport(ctx, payload(t, "A", status.Idle)))

	robot, err := store.GetRobot(ctx, "r1")
	require.NoError(t, err)
	require.False(t, robot.LastOnline.Before(start))
}

func TestAlertGatedOnIncomingReportOnly(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	// Module B is already FAILED in the store, so the aggregate will be
	// FAILED no matter what arrives.
	seedFleet(t, store, status.Idle, status.Failed)
	rec := &recordingAlerter{}
	srv := New(store, rec, zap.NewNop(), "r1")

	// Incoming RUNNING and IDLE must not alert even though the aggregate
	// is FAILED.
	require.NoError(t, srv.HandleReport(ctx, payload(t, "A", status.Running)))
	require.NoError(t, srv.HandleReport(ctx, payload(t, "A", status.Idle)))
	require.Empty(t, rec.all())

	robot, err := store.GetRobot(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, status.Failed, robot.Status)

	// Incoming FAILED alerts exactly once, naming the reported module.
	require.NoError(t, srv.HandleReport(ctx, payload(t, "B", status.Failed)))
	fired := rec.all()
	require.Len(t, fired, 1)
	require.Equal(t, "B", fired[0].ModuleID)
	require.Equal(t, "mod-B", fired[0].Name)
	require.Equal(t, "10.0.0.5:7001", fired[0].Addr)
	require.Equal(t, "r1", fired[0].RobotID)
}

func TestAlertForUnknownModuleStillFires(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	seedFleet(t, store, status.Idle)
	rec := &recordingAlerter{}
	srv := New(store, rec, zap.NewNop(), "r1")

	require.NoError(t, srv.HandleReport(ctx, payload(t, "ghost", status.Failed)))
	fired := rec.all()
	require.Len(t, fired, 1)
	require.Equal(t, "ghost", fired[0].ModuleID)
	require.Empty(t, fired[0].Name)
}

func TestMalformedPayloadDropsSilently(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	robot := seedFleet(t, store, status.Idle)
	rec := &recordingAlerter{}
	srv := New(store, rec, zap.NewNop(), "r1")

	for _, raw := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"status":"FAILED"}`),
		[]byte(`{"module_id":"A","status":"BOGUS"}`),
		{},
	} {
		require.NoError(t, srv.HandleReport(ctx, raw))
	}

	after, err := store.GetRobot(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, robot.Status, after.Status)
	require.Equal(t, robot.LastOnline, after.LastOnline)
	require.Empty(t, rec.all())
}

// End to end: a module fails, the client persists and notifies, the server
// recomputes the aggregate and alerts.
func TestEndToEndFailurePropagation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := storage.NewMemStore()
	robot := seedFleet(t, store, status.Idle, status.Running)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	robot.Port = lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, store.SaveRobot(ctx, robot))

	rec := &recordingAlerter{}
	srv := New(store, rec, zap.NewNop(), "r1")
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	rep := reporter.New(store, zap.NewNop())
	res, err := rep.Report(ctx, "A", "FAILED")
	require.NoError(t, err)
	require.True(t, res.Notified)

	require.Eventually(t, func() bool {
		r, err := store.GetRobot(ctx, "r1")
		return err == nil && r.Status == status.Failed
	}, 3*time.Second, 10*time.Millisecond, "aggregate never became FAILED")

	require.Eventually(t, func() bool {
		fired := rec.all()
		return len(fired) == 1 && fired[0].ModuleID == "A"
	}, 3*time.Second, 10*time.Millisecond, "alert never fired for module A")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
