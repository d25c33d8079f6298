// fleetctl is the operator CLI: provisioning of robots and modules, fleet
// listings, and the interactive module status report loop.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devghori1264/robofleet/internal/config"
	"github.com/devghori1264/robofleet/internal/provision"
	"github.com/devghori1264/robofleet/internal/reporter"
	"github.com/devghori1264/robofleet/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config.Fleetctl
	if err := config.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Manage the robot fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "Badger DB path")

	root.AddCommand(robotCmd(&cfg))
	root.AddCommand(moduleCmd(&cfg))
	root.AddCommand(reportCmd(&cfg))
	return root
}

func openStore(cfg *config.Fleetctl) (*storage.BadgerStore, error) {
	store, err := storage.NewBadgerStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return store, nil
}

func robotCmd(cfg *config.Fleetctl) *cobra.Command {
	cmd := &cobra.Command{Use: "robot", Short: "Robot provisioning"}

	var spec provision.RobotSpec
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a robot record",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			spec.Status = strings.ToUpper(spec.Status)
			r, err := provision.CreateRobot(c.Context(), store, spec)
			if err != nil {
				return err
			}
			fmt.Printf("Created robot %q (%s) status=%s\n", r.Name, r.ID, r.Status)
			return nil
		},
	}
	create.Flags().StringVar(&spec.Name, "name", "", "robot name")
	create.Flags().StringVar(&spec.Owner, "owner", "", "owner name")
	create.Flags().StringVar(&spec.OwnerEmail, "owner-email", "", "owner email")
	create.Flags().StringVar(&spec.Status, "status", "IDLE", "initial status (RUNNING/IDLE/FAILED)")
	create.Flags().Float64Var(&spec.PowerLevel, "power-level", 0.0, "power level 0.0-1.0")
	create.Flags().StringVar(&spec.NetworkSSID, "ssid", "", "network SSID")
	create.Flags().StringVar(&spec.NetworkPassword, "network-password", "", "network password")
	create.Flags().StringVar(&spec.IPAddress, "ip", "", "listen IP address")
	create.Flags().IntVar(&spec.Port, "port", 0, "listen port")
	create.Flags().StringVar(&spec.Password, "password", os.Getenv("ROBOFLEET_ROBOT_PASSWORD"), "robot password")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("ip")
	create.MarkFlagRequired("port")

	list := &cobra.Command{
		Use:   "list",
		Short: "List robot records",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			robots, err := store.ListRobots(c.Context())
			if err != nil {
				return err
			}
			for _, r := range robots {
				fmt.Printf("%s  %-20s %-8s %s\n", r.ID, r.Name, r.Status, r.Addr())
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func moduleCmd(cfg *config.Fleetctl) *cobra.Command {
	cmd := &cobra.Command{Use: "module", Short: "Module provisioning"}

	var spec provision.ModuleSpec
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a module record attached to a robot",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			spec.Kind = strings.ToUpper(spec.Kind)
			spec.Status = strings.ToUpper(spec.Status)
			m, err := provision.CreateModule(c.Context(), store, spec)
			if err != nil {
				return err
			}
			fmt.Printf("Created module %q (%s) kind=%s status=%s\n", m.Name, m.ID, m.Kind, m.Status)
			return nil
		},
	}
	create.Flags().StringVar(&spec.Name, "name", "", "module name")
	create.Flags().StringVar(&spec.Kind, "kind", "", "module kind (VISION/MOTION/IMU/ACTUATOR)")
	create.Flags().StringVar(&spec.IPAddress, "ip", "", "module IP address")
	create.Flags().IntVar(&spec.Port, "port", 0, "module port")
	create.Flags().StringVar(&spec.Status, "status", "IDLE", "initial status (RUNNING/IDLE/FAILED)")
	create.Flags().StringVar(&spec.RobotID, "robot", "", "owning robot id")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("kind")
	create.MarkFlagRequired("robot")

	var robotID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List modules owned by a robot",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			modules, err := store.ListModulesByRobot(c.Context(), robotID)
			if err != nil {
				return err
			}
			for _, m := range modules {
				fmt.Printf("%s  %-20s %-8s %-8s %s\n", m.ID, m.Name, m.Kind, m.Status, m.Addr())
			}
			return nil
		},
	}
	list.Flags().StringVar(&robotID, "robot", "", "owning robot id")
	list.MarkFlagRequired("robot")

	cmd.AddCommand(create, list)
	return cmd
}

func reportCmd(cfg *config.Fleetctl) *cobra.Command {
	var moduleID string
	var oneShot string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Transition a module's status and notify its robot",
		Long: "Without --status, runs an interactive loop reading status tokens\n" +
			"from stdin until EOF or interrupt.",
		RunE: func(c *cobra.Command, args []string) error {
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			rep := reporter.New(store, log)

			if oneShot != "" {
				return applyReport(c.Context(), rep, moduleID, oneShot)
			}
			return reportLoop(c.Context(), rep, store, moduleID)
		},
	}
	cmd.Flags().StringVar(&moduleID, "module", "", "module id")
	cmd.Flags().StringVar(&oneShot, "status", "", "report one status and exit")
	cmd.MarkFlagRequired("module")
	return cmd
}

func applyReport(ctx context.Context, rep *reporter.Reporter, moduleID, token string) error {
	res, err := rep.Report(ctx, moduleID, strings.ToUpper(strings.TrimSpace(token)))
	switch {
	case errors.Is(err, reporter.ErrNotifyFailed):
		fmt.Printf("Updated -> status=%s, last_online=%s (robot not notified: %v)\n",
			res.Module.Status, res.Module.LastOnline.Format("2006-01-02T15:04:05Z07:00"), err)
		return nil
	case err != nil:
		return err
	}
	fmt.Printf("Updated -> status=%s, last_online=%s\nSent -> {\"module_id\":%q,\"status\":%q}\n",
		res.Module.Status, res.Module.LastOnline.Format("2006-01-02T15:04:05Z07:00"),
		res.Module.ID, res.Module.Status)
	return nil
}

// reportLoop repeatedly solicits a status token and applies it. An invalid
// token is reported and the loop continues; interrupt or EOF exits cleanly.
func reportLoop(ctx context.Context, rep *reporter.Reporter, store storage.Store, moduleID string) error {
	module, err := store.GetModule(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("module %s: %w", moduleID, err)
	}
	robot, err := store.GetRobot(ctx, module.RobotID)
	if err != nil {
		return fmt.Errorf("robot %s: %w", module.RobotID, err)
	}
	fmt.Printf("Module %s (%s) current status: %s\n", module.ID, module.Name, module.Status)
	fmt.Printf("-> sending updates to %s\n\n", robot.Addr())

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Print("Enter new status (RUNNING, IDLE, FAILED): ")
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting.")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Println("\nExiting.")
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := applyReport(ctx, rep, moduleID, line); err != nil {
				fmt.Println("error:", err)
			}
		}
	}
}
