// Package cli implements attendancectl, the operator tool for the kiosk's
// persisted attendance log.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/okian/attendance/internal/adapters/repository"
	service "github.com/okian/attendance/internal/app"
	"github.com/okian/attendance/internal/config"
	"github.com/okian/attendance/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "attendancectl",
		Short: "Inspect and export the attendance log",
		Long: `attendancectl reads the identities and attendance events persisted by the
kiosk service from the configured store (ATTENDANCE_STORE_BACKEND and
friends, or the YAML file named by ATTENDANCE_CONFIG) and prints or exports
them. It can also drive a running kiosk with synthetic frames.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file (overrides ATTENDANCE_CONFIG)")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if path := mustGetString(cmd, "config"); path != "" {
			return os.Setenv(config.EnvFile, path)
		}
		return nil
	}

	root.AddCommand(
		newExportCmd(),
		newIdentitiesCmd(),
		newEventsCmd(),
		newVerifyCmd(),
		newSimulateCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openLog restores the persisted state into a read-only service. Nothing is
// written back because no mutation is ever issued.
func openLog(ctx context.Context) (*service.Service, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithLocation(loc),
		service.WithSnapshotStore(store),
		service.WithDescriptorLength(cfg.DescriptorLength),
	)
	if err := svc.Start(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, func() {
		svc.Stop()
		closeStore()
	}, nil
}
